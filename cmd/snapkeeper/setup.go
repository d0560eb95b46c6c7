package main

import (
	"context"
	"fmt"

	"github.com/GESkunkworks/snapkeeper"
	"github.com/GESkunkworks/snapkeeper/internal/config"
	"github.com/GESkunkworks/snapkeeper/internal/logging"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/inconshreveable/log15"
)

// app holds everything the commands share once the configuration
// is loaded and AWS is reachable.
type app struct {
	cfg      *config.Config
	log      log15.Logger
	conn     snapkeeper.Connector
	notifier snapkeeper.Notifier
}

// setup loads the configuration, builds the logger and connects to
// AWS. The credentials are checked with STS before anything else runs.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	sess, err := snapkeeper.NewSession(snapkeeper.SessionInput{
		Region:    cfg.Connection.Region,
		Endpoint:  cfg.Connection.Endpoint,
		AccessKey: cfg.Connection.AccessKey,
		SecretKey: cfg.Connection.SecretKey,
		ProxyHost: cfg.Connection.ProxyHost,
		ProxyPort: cfg.Connection.ProxyPort,
	})
	if err != nil {
		return nil, err
	}
	account, err := snapkeeper.VerifyCredentials(ctx, sess)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to aws", "account", account, "region", aws.StringValue(sess.Config.Region))

	rt := &app{
		cfg:  cfg,
		log:  logger,
		conn: snapkeeper.NewEC2Connector(sess, logger),
	}
	if cfg.SNS.Topic != "" {
		rt.notifier = snapkeeper.NewSNSNotifier(sess)
	}
	return rt, nil
}

// rotation builds the Rotation for period from the configuration.
func (rt *app) rotation(period snapkeeper.Period, metrics *snapkeeper.Metrics) (*snapkeeper.Rotation, error) {
	return snapkeeper.New(rotationInput(rt.cfg, period, rt.conn, rt.notifier, rt.log, metrics))
}

func rotationInput(cfg *config.Config, period snapkeeper.Period, conn snapkeeper.Connector,
	notifier snapkeeper.Notifier, logger log15.Logger, metrics *snapkeeper.Metrics) *snapkeeper.RotationInput {
	keep := cfg.Keep(string(period))
	pause := cfg.Snapshots.Pause
	topic := cfg.SNS.Topic
	subject := cfg.SNS.Subject
	marker := cfg.Snapshots.MarkerTag
	return &snapkeeper.RotationInput{
		Connector:      conn,
		Notifier:       notifier,
		Topic:          &topic,
		Subject:        &subject,
		Period:         &period,
		KeepCount:      &keep,
		Filter:         snapkeeper.Filter(cfg.Volumes.Filter),
		Pause:          &pause,
		LegacyPrefixes: cfg.Snapshots.LegacyPrefixes,
		MarkerTag:      &marker,
		Metrics:        metrics,
		Logger:         &logger,
	}
}
