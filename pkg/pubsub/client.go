package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

// Role says which side of the two OddsVault streams a binary sits on. The
// client only verifies the resources its role touches.
type Role int

const (
	// RolePublisher is the outbox publisher; it needs both topics.
	RolePublisher Role = iota
	// RoleConsumer is the worker; it needs both subscriptions.
	RoleConsumer
)

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	role      Role
}

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNilClient         = errors.New("pubsub client not initialized")
)

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

// NewClient dials Pub/Sub and fails fast when a topic or subscription the
// role depends on is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: psClient, projectID: projectID, cfg: cfg, role: role}
	if err := c.verify(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "pubsub_role", role.String()), "pubsub client initialized")
	}
	return c, nil
}

func (r Role) String() string {
	if r == RoleConsumer {
		return "consumer"
	}
	return "publisher"
}

// required lists the resource IDs the role cannot run without.
func required(cfg config.PubSubConfig, role Role) (resourceKind, []string) {
	kind, candidates := kindTopic, []string{cfg.NotificationTopic, cfg.DomainTopic}
	if role == RoleConsumer {
		kind, candidates = kindSubscription, []string{cfg.NotificationSubscription, cfg.DomainSubscription}
	}
	names := make([]string, 0, len(candidates))
	for _, n := range candidates {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return kind, names
}

func (c *Client) verify(ctx context.Context) error {
	kind, names := required(c.cfg, c.role)
	if len(names) == 0 {
		return fmt.Errorf("no pubsub %s configured", kind)
	}
	for _, name := range names {
		full := c.resourceName(kind, name)
		var err error
		if kind == kindTopic {
			_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
		} else {
			_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
		}
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("pubsub %s %q does not exist", kind, name)
		case err != nil:
			return fmt.Errorf("checking pubsub %s %q: %w", kind, name, err)
		}
	}
	return nil
}

// Subscription accepts an ID or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName(kindSubscription, name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.NotificationSubscription)
}

func (c *Client) DomainSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.DomainSubscription)
}

// Publisher accepts an ID or a full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName(kindTopic, name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

// Ping re-checks the resources the role depends on.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNilClient
	}
	return c.verify(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) resourceName(kind resourceKind, name string) string {
	n := strings.TrimSpace(name)
	if c == nil || n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+string(kind)+"/") {
		return n
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + string(kind) + "/" + n
}
