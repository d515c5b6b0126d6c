// Package mongo connects to MongoDB with the v2 driver, retrying the initial
// ping, and exposes a readiness probe.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store := mongostore.New(db.Collection("settings"))
//
// Config is read from MONGODB_* environment variables.
package mongo
