// Package snapkeeper rotates EBS snapshots. On every run it takes a
// fresh snapshot of each volume matching a filter, copies the volume's
// tags onto it, and deletes that volume's oldest snapshots so that only
// a fixed number remain.
//
// # Snapshot Rotation Overview
//
// Snapshots are named after the volume they were taken from:
//
//	day_snapshot--web-01--i-0abc123--vol-0def456
//
// The first field is the rotation prefix (the period, such as day, week
// or month, followed by "_snapshot"), then the Name tag of the attached
// instance, the instance ID and the volume ID. Detached volumes get
// empty instance fields and are still snapshotted.
//
// Only snapshots whose description starts with the rotation prefix are
// ever deleted. Snapshots made by hand or by other tools are left alone
// no matter how old they are. Setting a marker tag tightens this
// further: snapshots must then also carry the marker tag to be pruned.
//
// Each volume is handled on its own. If the snapshot of a volume can
// not be created none of that volume's existing snapshots are touched,
// and failures of one volume never stop the run for the others. The
// run only ends early when AWS rejects the credentials or can not be
// reached at all.
//
// # Usage
//
// Create a snapkeeper.RotationInput, pass it to New and call Start on
// the returned Rotation. Start returns a RunReport with what was created
// and deleted. If a Notifier and topic are configured the summary is
// published there, preceded by a separate error notification whenever
// a volume failed.
//
// For recurring runs hand the Rotation to a Scheduler along with a cron
// expression.
//
// # Sample
//
// Below is a sample main package you could use to run a daily rotation
// keeping seven snapshots of every volume tagged MakeSnapshot=true.
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"os"
//
//		"github.com/GESkunkworks/snapkeeper"
//		"github.com/inconshreveable/log15"
//	)
//
//	func main() {
//		sess, err := snapkeeper.NewSession(snapkeeper.SessionInput{Region: "eu-west-1"})
//		if err != nil { panic(err) }
//		logger := log15.New()
//		period := snapkeeper.PeriodDay
//		keep := 7
//		topic := "arn:aws:sns:eu-west-1:123456789012:snapshots"
//		rot, err := snapkeeper.New(&snapkeeper.RotationInput{
//			Connector: snapkeeper.NewEC2Connector(sess, logger),
//			Notifier:  snapkeeper.NewSNSNotifier(sess),
//			Topic:     &topic,
//			Period:    &period,
//			KeepCount: &keep,
//			Filter:    snapkeeper.Filter{"tag:MakeSnapshot": {"true"}},
//			Logger:    &logger,
//		})
//		if err != nil { panic(err) }
//		report, err := rot.Start(context.Background())
//		if err != nil { panic(err) }
//		fmt.Println(report.Summary())
//		if report.HasErrors() { os.Exit(2) }
//	}
package snapkeeper
