// Package hubstate holds ProjectHub's ephemeral state in Redis: sign-in
// sessions, OAuth state tokens, failed-login counters, and the Pub/Sub
// channels that fan activity and notifications out to live clients.
//
// # Multi-Instance Support
//
// Every key and channel is namespaced by instance name, so several deployments
// (for example staging and a developer sandbox) can share one Redis server:
//
//	projecthub:{instance}:session:{token}            hash, TTL = session lifetime
//	projecthub:{instance}:user_sessions:{user_id}    set of session tokens
//	projecthub:{instance}:oauth_state:{state}        string, TTL 10 minutes
//	projecthub:{instance}:login_attempts:{email}     counter, TTL = lockout window
//	projecthub:{instance}:activity_events            channel of ActivityEvent JSON
//	projecthub:{instance}:user:{user_id}:notifications  channel of hub.Notification JSON
//
// # Delivery
//
// Pub/Sub delivery is at-most-once. Subscribers that fall behind lose events;
// the relational store remains the source of truth for activity and notifications.
//
// # Usage Example
//
//	client, err := hubstate.NewClient(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	sub, err := client.SubscribeActivity(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sub.Close()
//
//	for event := range sub.Events() {
//		fmt.Println(event.Action, event.TaskTitle)
//	}
package hubstate
