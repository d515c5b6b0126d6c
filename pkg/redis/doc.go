// Package redis connects to Redis with bounded retries and exposes a
// readiness probe. The settings store in pkg/settings/redisstore builds on
// the client returned by Connect.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Config is populated from REDIS_URL, REDIS_RETRY_ATTEMPTS,
// REDIS_RETRY_INTERVAL, REDIS_CONNECT_TIMEOUT and REDIS_KEY_PREFIX.
package redis
