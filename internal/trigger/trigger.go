package trigger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"iffy/internal/metrics"
)

var ErrEmptyID = errors.New("trigger: empty iffy id")

// Trigger asks the stylization step to process a stored record.
type Trigger interface {
	Fire(ctx context.Context, id string) error
}

// Noop drops every request. Records stay processing until something else
// picks them up.
type Noop struct{}

func (Noop) Fire(ctx context.Context, id string) error {
	return validID(id)
}

type instrumented struct {
	next    Trigger
	mode    string
	metrics *metrics.Metrics
}

// Instrument counts Fire results per mode.
func Instrument(t Trigger, mode string, m *metrics.Metrics) Trigger {
	if m == nil {
		return t
	}
	return &instrumented{next: t, mode: mode, metrics: m}
}

func (i *instrumented) Fire(ctx context.Context, id string) error {
	err := i.next.Fire(ctx, id)
	i.metrics.ObserveTrigger(i.mode, err)
	return err
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	return nil
}

func wrap(mode string, err error) error {
	return fmt.Errorf("%s trigger: %w", mode, err)
}

// Options selects and configures a trigger mode.
type Options struct {
	Mode         string
	BaseURL      string
	HTTPClient   *http.Client
	Redis        *redis.Client
	QueueKey     string
	KafkaBrokers []string
	KafkaTopic   string
}

func New(o Options) (Trigger, error) {
	switch strings.ToLower(o.Mode) {
	case "", "http":
		if o.BaseURL == "" {
			return nil, errors.New("trigger: http mode needs a base url")
		}
		return NewHTTP(o.BaseURL, o.HTTPClient), nil
	case "redis":
		if o.Redis == nil {
			return nil, errors.New("trigger: redis mode needs a client")
		}
		return NewRedis(o.Redis, o.QueueKey), nil
	case "kafka":
		if len(o.KafkaBrokers) == 0 {
			return nil, errors.New("trigger: kafka mode needs brokers")
		}
		return NewKafka(o.KafkaBrokers, o.KafkaTopic), nil
	case "noop":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("trigger: unknown mode %q", o.Mode)
	}
}
