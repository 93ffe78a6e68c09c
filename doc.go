// Package mailrelay is a transactional email relay with primary/backup
// provider failover.
//
// Every send goes to the primary provider first. A 2xx response is a
// success and a 4xx response means the payload itself needs review; neither
// is retried. Any other outcome (5xx, timeouts, connection errors) is retried
// exactly once on the backup provider.
//
// # Basic Usage
//
//	client, err := mailrelay.New(mailrelay.DefaultConfig(),
//		mailrelay.WithSendGrid(os.Getenv("SENDGRID_API_KEY")),
//		mailrelay.WithMailgunBackup(os.Getenv("MAILGUN_API_KEY"), "mg.example.com"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	email, err := mailrelay.NewEmail(mailrelay.Fields{
//		"from":    "noreply@example.com",
//		"to":      "sam@example.com, jane@example.com",
//		"subject": "Welcome",
//		"body":    "Welcome!",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := client.Send(context.Background(), email)
//
// A failed delivery is a *DeliveryError; use IsUserAttention and IsTransport
// to tell a rejected payload from an infrastructure failure.
//
// # Supported Providers
//
//   - SendGrid (v3 mail/send)
//   - Mailgun (messages endpoint, or the mailgun-go SDK)
//   - AWS SES
//
// The cmd/mailrelay binary exposes the client as POST /v1/send.
package mailrelay
