package tracing

import (
	"fmt"

	"intraday_trader/pkg/logger"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jCfg "github.com/uber/jaeger-client-go/config"
	jZap "github.com/uber/jaeger-client-go/log/zap"
	"github.com/uber/jaeger-lib/metrics"
)

var (
	serviceName = "default"
)

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

type Config struct {
	Enabled    bool
	Host       string
	Port       int
	SampleRate float64
	// Tags are attached to every span, e.g. the traded symbol.
	Tags map[string]string
}

// sampler traces everything at rate >= 1 or <= 0 and samples probabilistically in between.
func sampler(rate float64) *jCfg.SamplerConfig {
	if rate <= 0 || rate >= 1 {
		return &jCfg.SamplerConfig{Type: jaeger.SamplerTypeConst, Param: 1}
	}
	return &jCfg.SamplerConfig{Type: jaeger.SamplerTypeProbabilistic, Param: rate}
}

// InitTracer installs a jaeger tracer as the global tracer and returns its
// closer. With tracing disabled the global no-op tracer stays in place.
func InitTracer(conf Config) (opentracing.Tracer, func(), error) {
	if !conf.Enabled {
		return opentracing.GlobalTracer(), func() {}, nil
	}

	tags := make([]opentracing.Tag, 0, len(conf.Tags))
	for k, v := range conf.Tags {
		tags = append(tags, opentracing.Tag{Key: k, Value: v})
	}

	cfg := &jCfg.Configuration{
		ServiceName: serviceName,
		Sampler:     sampler(conf.SampleRate),
		Reporter: &jCfg.ReporterConfig{
			LocalAgentHostPort: fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		},
		Tags: tags,
	}

	tracer, closer, err := cfg.NewTracer(
		jCfg.Metrics(metrics.NullFactory),
		jCfg.Logger(jZap.NewLogger(logger.L())),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init jaeger tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	logger.Info("[TRACE] reporting to %s:%d, sample rate %v", conf.Host, conf.Port, cfg.Sampler.Param)
	return tracer, func() {
		if err := closer.Close(); err != nil {
			logger.Error("[TRACE] close tracer: %v", err)
		}
	}, nil
}
