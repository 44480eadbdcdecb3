package enums

import "fmt"

// TransactionType separates subscription fees from activation fees.
type TransactionType string

const (
	TransactionTypeSubscription TransactionType = "subscription"
	TransactionTypeActivation   TransactionType = "activation"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeSubscription,
	TransactionTypeActivation,
}

func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
