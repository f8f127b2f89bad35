package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gauss-project/gauss/codec"
	gconfig "github.com/gauss-project/gauss/config"
	"github.com/gauss-project/gauss/supervisor"
	"github.com/gauss-project/gauss/topic"
	"github.com/gauss-project/gauss/xerrors"
)

// watchReconfigure implements the SIGHUP side of §C.2's storage hot-reload
// supplemented feature: on each SIGHUP, configPath is re-parsed and every
// running topic still declared in the reloaded config is handed a freshly
// rendered Context, whether or not its schema changed. A storage that
// doesn't implement topic.Reconfigurable, or a topic no longer in the
// config, logs or is skipped — SIGHUP never aborts the running pipeline.
func watchReconfigure(ctx context.Context, hup <-chan os.Signal, pipeline *supervisor.Pipeline, configPath string, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			reconfigureOnce(pipeline, configPath, logger)
		}
	}
}

func reconfigureOnce(pipeline *supervisor.Pipeline, configPath string, logger *slog.Logger) {
	cfg, err := gconfig.LoadFile(configPath)
	if err != nil {
		logger.Warn("sighup: reload failed, keeping running configuration", "error", err)
		return
	}

	byName := make(map[string]gconfig.TopicConfig, len(cfg.Topics))
	for _, tc := range cfg.Topics {
		byName[tc.Name] = tc
	}

	for _, name := range pipeline.TopicNames() {
		tc, ok := byName[name]
		if !ok {
			continue // topic removed from config; reconfigure never deletes a running topic
		}

		sch := schemaFromConfig(tc.StorageConfig.Schema)
		var codecC codec.Codec
		if len(sch.Fields) > 0 {
			codecC = codec.NewJSONCodec(sch)
		}

		if err := pipeline.Reconfigure(name, topic.Context{Serializer: codecC}); err != nil {
			if xerrors.Is(err, xerrors.ErrReconfigureUnsupported) {
				logger.Debug("sighup: topic storage does not support reconfigure", "topic", name)
				continue
			}
			logger.Warn("sighup: reconfigure failed", "topic", name, "error", err)
			continue
		}
		logger.Info("sighup: reconfigured topic", "topic", name)
	}
}
