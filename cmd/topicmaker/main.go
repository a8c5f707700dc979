package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/adapter"
	"github.com/niksmo/storefront/pkg/sigctx"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	partitions        = 3
	replicationFactor = 3
	minInsyncReplicas = "1"

	policyDelete  = "delete"
	policyCompact = "compact"

	orderRetention = "604800000" // 7 days, ms
)

// topicSpec is one topic the storefront produces to or consumes from.
type topicSpec struct {
	name   string
	policy string
	// extra topic configs, may be nil
	configs map[string]string
}

func (s topicSpec) kafkaConfigs() map[string]*string {
	out := map[string]*string{
		"cleanup.policy":      kadm.StringPtr(s.policy),
		"min.insync.replicas": kadm.StringPtr(minInsyncReplicas),
	}
	for k, v := range s.configs {
		out[k] = kadm.StringPtr(v)
	}
	return out
}

func topicSpecs(cfg config.Config) []topicSpec {
	t := cfg.Broker.Topics
	return []topicSpec{
		{
			name:    t.OrderPlaced,
			policy:  policyDelete,
			configs: map[string]string{"retention.ms": orderRetention},
		},
		// Latest product version per key is all the feed needs.
		{name: t.CatalogProducts, policy: policyCompact},
		{name: t.VisibilityStream, policy: policyDelete},
		{name: toGroupTable(cfg.Broker.Consumers.VisibilityGroup), policy: policyCompact},
	}
}

func main() {
	sigCtx, closeApp := sigctx.NotifyContext(context.Background())
	defer closeApp()

	cfg := config.Load()

	cl := createClient(cfg)
	defer cl.Close()

	specs := topicSpecs(cfg)
	printStart(specs)
	start := time.Now()

	if err := makeTopics(sigCtx, cl, specs); err != nil {
		fmt.Printf("failed to create topics:\n%s\n", err)
		os.Exit(1)
	}
	fmt.Printf("\ncomplete in %s\n", time.Since(start))
}

func createClient(cfg config.Config) *kadm.Client {
	opts := []kgo.Opt{kgo.SeedBrokers(cfg.Broker.SeedBrokers...)}

	if files := cfg.Broker.TLS; files.Enabled() {
		tlsConfig, err := adapter.MakeTLSConfig(files.CA, files.Cert, files.Key)
		if err != nil {
			fmt.Printf("tls: %s\n", err)
			os.Exit(2)
		}
		opts = append(opts, kgo.DialTLSConfig(tlsConfig))
	}

	cl, err := kadm.NewOptClient(opts...)
	if err != nil {
		fmt.Printf("kafka client: %s\n", err)
		os.Exit(2)
	}
	return cl
}

// makeTopics creates each topic on its own so every one gets its configs.
// Existing topics are left untouched.
func makeTopics(ctx context.Context, cl *kadm.Client, specs []topicSpec) error {
	var errs []error
	for _, s := range specs {
		res, err := cl.CreateTopic(
			ctx, partitions, replicationFactor, s.kafkaConfigs(), s.name,
		)
		if err == nil {
			err = res.Err
		}
		switch {
		case errors.Is(err, kerr.TopicAlreadyExists):
			fmt.Printf("topic %q already exists\n", s.name)
		case err != nil:
			errs = append(errs, fmt.Errorf("topic %q: %w", s.name, err))
		default:
			fmt.Printf("topic %q created (%s)\n", s.name, s.policy)
		}
	}
	return errors.Join(errs...)
}

func printStart(specs []topicSpec) {
	fmt.Println("initializing topics...")
	for _, s := range specs {
		fmt.Printf("\t- %q\n", s.name)
	}
	fmt.Println()
}

func toGroupTable(group string) string {
	return string(goka.GroupTable(goka.Group(group)))
}
