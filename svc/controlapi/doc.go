// Package controlapi exposes the engine over HTTP: status and queue
// inspection, pause and queue controls, settings, a DataStar status stream
// and health probes. The extension bridge is mounted on the same router.
//
//	api := controlapi.New(eng,
//		controlapi.WithUpdates(updates),
//		controlapi.WithReadinessChecks(bridge.Ping),
//		controlapi.WithMount(bridge.Path(), bridge),
//	)
//	srv.Run(ctx, api.Handle())
package controlapi
