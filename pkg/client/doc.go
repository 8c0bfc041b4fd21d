// Package client is the Go SDK for an educoind server.
//
// Reading the ledger needs no credentials:
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	board, err := c.Leaderboard(ctx, 10)
//
// # Rewards
//
// When the daemon is configured with a teacher secret, rewards require a
// teacher token. Login fetches one and attaches it to later calls:
//
//	if _, err := c.Login(ctx, "Ms. Frizzle", secret); err != nil {
//	    log.Fatal(err)
//	}
//	block, err := c.Reward(ctx, "", "Alice", 10)
//
// A token obtained earlier can be passed with WithBearerToken instead.
//
// # Errors
//
// Rejected submissions come back as *APIError. errors.Is matches them against
// the package sentinels:
//
//	_, err := c.Transfer(ctx, "", "Alice", "Bob", 1000)
//	if errors.Is(err, client.ErrInsufficientBalance) {
//	    // Alice cannot cover it; nothing was recorded.
//	}
//
// # Checking the chain yourself
//
// VerifyLocal recomputes hashes over blocks fetched with Blocks, so a reader
// need not trust the daemon's own verdict:
//
//	blocks, _ := c.Blocks(ctx, false)
//	if err := client.VerifyLocal(blocks); err != nil {
//	    fmt.Println("tampered:", err)
//	}
package client
