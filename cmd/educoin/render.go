package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/jmerrifield20/educoin/pkg/client"
	"github.com/pterm/pterm"
)

func renderTable(w io.Writer, data pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

func renderBalances(w io.Writer, balances map[string]int64) error {
	names := make([]string, 0, len(balances))
	for n := range balances {
		names = append(names, n)
	}
	sort.Strings(names)

	data := pterm.TableData{{"Participant", "Balance"}}
	for _, n := range names {
		data = append(data, []string{n, strconv.FormatInt(balances[n], 10)})
	}
	return renderTable(w, data)
}

func renderLeaderboard(w io.Writer, board []client.Standing) error {
	if len(board) == 0 {
		fmt.Fprintln(w, "no participants yet")
		return nil
	}
	data := pterm.TableData{{"#", "Participant", "Balance"}}
	for _, s := range board {
		name := s.Participant
		if s.Rank == 1 {
			name = pterm.LightYellow(name)
		}
		data = append(data, []string{strconv.Itoa(s.Rank), name, strconv.FormatInt(s.Balance, 10)})
	}
	return renderTable(w, data)
}

func renderRewards(w io.Writer, rows []client.RewardEntry) error {
	data := pterm.TableData{{"Teacher", "Student", "Amount"}}
	for _, r := range rows {
		data = append(data, []string{r.Teacher, r.Student, strconv.FormatInt(r.Amount, 10)})
	}
	return renderTable(w, data)
}

func renderTransfers(w io.Writer, rows []client.TransferEntry) error {
	data := pterm.TableData{{"From", "To", "Amount"}}
	for _, r := range rows {
		data = append(data, []string{r.From, r.To, strconv.FormatInt(r.Amount, 10)})
	}
	return renderTable(w, data)
}

func renderBlocks(w io.Writer, blocks []client.Block) error {
	data := pterm.TableData{{"Index", "Sealed", "Txs", "Proof", "Hash", "Previous"}}
	for _, b := range blocks {
		data = append(data, []string{
			strconv.Itoa(b.Index),
			b.Timestamp.Format(time.DateTime),
			strconv.Itoa(len(b.Transactions)),
			strconv.FormatInt(b.Proof, 10),
			short(b.Hash),
			short(b.PreviousHash),
		})
	}
	return renderTable(w, data)
}

func renderBlock(w io.Writer, b *client.Block) error {
	head := pterm.Sprintfln("sealed    %s", b.Timestamp.Format(time.RFC3339Nano)) +
		pterm.Sprintfln("proof     %d", b.Proof) +
		pterm.Sprintfln("previous  %s", b.PreviousHash) +
		pterm.Sprintf("hash      %s", b.Hash)
	box := pterm.DefaultBox.WithHorizontalPadding(2).
		WithTitle(pterm.LightCyan(fmt.Sprintf("|BLOCK %d|", b.Index))).WithTitleTopCenter()
	fmt.Fprintln(w, box.Sprint(head))

	if len(b.Transactions) == 0 {
		fmt.Fprintln(w, "no transactions")
		return nil
	}
	data := pterm.TableData{{"Sender", "Recipient", "Amount", "Teacher"}}
	for _, tx := range b.Transactions {
		data = append(data, []string{tx.Sender, tx.Recipient, strconv.FormatInt(tx.Amount, 10), tx.TeacherName()})
	}
	return renderTable(w, data)
}

func printSealed(w io.Writer, what string, b *client.Block) {
	printSuccess(w, fmt.Sprintf("%s (block %d, %s)", what, b.Index, short(b.Hash)))
}

func printSuccess(w io.Writer, msg string) {
	fmt.Fprint(w, pterm.Success.Sprintln(msg))
}

func printFailure(w io.Writer, msg string) {
	fmt.Fprint(w, pterm.Error.Sprintln(msg))
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
