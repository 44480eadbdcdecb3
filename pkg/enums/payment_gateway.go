package enums

import "fmt"

type PaymentGateway string

const (
	GatewayManual       PaymentGateway = "manual"
	GatewayBankTransfer PaymentGateway = "bank_transfer"
	GatewayPaystack     PaymentGateway = "paystack"
	GatewayFlutterwave  PaymentGateway = "flutterwave"
	GatewayCrypto       PaymentGateway = "crypto"
)

var validPaymentGateways = []PaymentGateway{
	GatewayManual,
	GatewayBankTransfer,
	GatewayPaystack,
	GatewayFlutterwave,
	GatewayCrypto,
}

func (p PaymentGateway) IsValid() bool {
	for _, candidate := range validPaymentGateways {
		if candidate == p {
			return true
		}
	}
	return false
}

func ParsePaymentGateway(value string) (PaymentGateway, error) {
	for _, candidate := range validPaymentGateways {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment gateway %q", value)
}
