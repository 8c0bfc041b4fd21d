// Command seed drives a running educoind through a demo classroom: a round
// of rewards followed by a few transfers, one of which is meant to bounce.
//
// Usage:
//
//	go run ./cmd/seed
//	EDUCOIN_SERVER=http://localhost:8080 EDUCOIN_TEACHER_SECRET=... go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jmerrifield20/educoin/pkg/client"
)

const defaultServer = "http://localhost:8080"

type seedReward struct {
	Teacher string
	Student string
	Amount  int64
}

type seedTransfer struct {
	From   string
	To     string
	Amount int64
}

var rewards = []seedReward{
	{Teacher: "Ms. Frizzle", Student: "Alice", Amount: 100},
	{Teacher: "Ms. Frizzle", Student: "Bob", Amount: 60},
	{Teacher: "Mr. Keating", Student: "Carol", Amount: 80},
	{Teacher: "Mr. Keating", Student: "Alice", Amount: 25},
	{Teacher: "Ms. Honey", Student: "Dmitri", Amount: 40},
}

var transfers = []seedTransfer{
	{From: "Alice", To: "Bob", Amount: 40},
	{From: "Carol", To: "Dmitri", Amount: 15},
	{From: "Bob", To: "Carol", Amount: 10},
	{From: "Dmitri", To: "Alice", Amount: 500}, // overdraft, rejected
}

func main() {
	server := os.Getenv("EDUCOIN_SERVER")
	if server == "" {
		server = defaultServer
	}
	c, err := client.New(server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	if err := run(context.Background(), c, os.Getenv("EDUCOIN_TEACHER_SECRET"), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, secret string, out io.Writer) error {
	st, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("reach daemon: %w", err)
	}
	fmt.Fprintf(out, "connected: %d block(s), tip %s\n", st.Length, short(st.Tip))

	if secret != "" {
		if _, err := c.Login(ctx, rewards[0].Teacher, secret); err != nil {
			return fmt.Errorf("teacher login: %w", err)
		}
		fmt.Fprintln(out, "logged in as", rewards[0].Teacher)
	}

	fmt.Fprintln(out, "\nrewards")
	for _, r := range rewards {
		b, err := c.Reward(ctx, r.Teacher, r.Student, r.Amount)
		if err != nil {
			return fmt.Errorf("reward %s: %w", r.Student, err)
		}
		fmt.Fprintf(out, "  block %-3d %-12s -> %-8s %4d\n", b.Index, r.Teacher, r.Student, r.Amount)
	}

	fmt.Fprintln(out, "\ntransfers")
	for _, t := range transfers {
		b, err := c.Transfer(ctx, "", t.From, t.To, t.Amount)
		if errors.Is(err, client.ErrInsufficientBalance) {
			fmt.Fprintf(out, "  rejected  %-12s -> %-8s %4d (insufficient balance)\n", t.From, t.To, t.Amount)
			continue
		}
		if err != nil {
			return fmt.Errorf("transfer %s->%s: %w", t.From, t.To, err)
		}
		fmt.Fprintf(out, "  block %-3d %-12s -> %-8s %4d\n", b.Index, t.From, t.To, t.Amount)
	}

	v, err := c.Verify(ctx)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !v.Valid {
		return fmt.Errorf("chain invalid after seeding: %s", v.Error)
	}

	board, err := c.Leaderboard(ctx, 0)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	fmt.Fprintln(out, "\nleaderboard")
	for _, s := range board {
		fmt.Fprintf(out, "  %2d. %-8s %4d\n", s.Rank, s.Participant, s.Balance)
	}

	fmt.Fprintln(out, "\nseed complete")
	return nil
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
