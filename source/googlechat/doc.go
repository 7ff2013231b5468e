// Package googlechat lists messages of a Google Chat space through the Chat
// REST API and converts them into source.RawMessage values.
//
// Authentication uses an existing OAuth token file plus the client secrets
// it was issued for; the interactive consent flow is not part of this package.
//
//	ts, err := googlechat.TokenSourceFromFiles(ctx, "credentials.json", "token.json")
//	client, err := googlechat.NewClient(ctx, googlechat.WithClientOptions(option.WithTokenSource(ts)))
//	msgs, err := client.ListMessages(ctx, "spaces/AAAAocwPEic")
package googlechat
