package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Client owns the Pub/Sub connection for the orders topic and its analytics
// subscription.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub orders topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// NewClient connects and verifies the orders topic and analytics
// subscription exist, creating them when cfg.AutoCreate is set.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.OrdersTopic) == "" {
		return nil, errTopicRequired
	}

	raw, err := pubsub.NewClient(ctx, gcp.ProjectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: raw, projectID: gcp.ProjectID, cfg: cfg}
	if err := c.ensureResources(ctx, cfg.AutoCreate); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, logger.Fields{
			"topic":        cfg.OrdersTopic,
			"subscription": cfg.AnalyticsSubscription,
			"auto_create":  cfg.AutoCreate,
		}), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

func (c *Client) ensureResources(ctx context.Context, create bool) error {
	topic := c.topicResourceName(c.cfg.OrdersTopic)
	if err := c.ensureTopic(ctx, topic, create); err != nil {
		return err
	}
	for _, name := range subscriptionNames(c.cfg) {
		if err := c.ensureSubscription(ctx, c.subscriptionResourceName(name), topic, create); err != nil {
			return err
		}
	}
	return nil
}

func subscriptionNames(cfg config.PubSubConfig) []string {
	if name := strings.TrimSpace(cfg.AnalyticsSubscription); name != "" {
		return []string{name}
	}
	return nil
}

func (c *Client) ensureTopic(ctx context.Context, topic string, create bool) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic})
	if status.Code(err) == codes.NotFound && create {
		_, err = c.client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: topic})
	}
	return resourceErr("topic", topic, err)
}

func (c *Client) ensureSubscription(ctx context.Context, sub, topic string, create bool) error {
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: sub})
	if status.Code(err) == codes.NotFound && create {
		_, err = c.client.SubscriptionAdminClient.CreateSubscription(ctx, &pubsubpb.Subscription{
			Name:               sub,
			Topic:              topic,
			AckDeadlineSeconds: int32(max(10, c.cfg.AckDeadlineSec)),
		})
	}
	return resourceErr("subscription", sub, err)
}

func resourceErr(kind, name string, err error) error {
	switch {
	case err == nil, status.Code(err) == codes.AlreadyExists:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// Subscription returns a Subscriber for a subscription id or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	if full := c.subscriptionResourceName(name); full != "" {
		return c.client.Subscriber(full)
	}
	return nil
}

// AnalyticsSubscription feeds the analytics worker.
func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.AnalyticsSubscription)
}

// Publisher returns a Publisher for a topic id or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	if full := c.topicResourceName(name); full != "" {
		return c.client.Publisher(full)
	}
	return nil
}

// Ping re-checks the topic and subscription without creating anything.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.ensureResources(ctx, false)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) subscriptionResourceName(name string) string {
	return c.resourceName(name, "subscriptions")
}

func (c *Client) topicResourceName(name string) string {
	return c.resourceName(name, "topics")
}

// resourceName expands a short id into projects/<p>/<kind>/<id>. Names that
// are already full resource paths of the same kind pass through.
func (c *Client) resourceName(name, kind string) string {
	n := strings.TrimSpace(name)
	if c == nil || n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	if p := strings.TrimSpace(c.projectID); p != "" {
		return "projects/" + p + "/" + kind + "/" + n
	}
	return ""
}
