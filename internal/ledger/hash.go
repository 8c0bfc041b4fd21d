package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"
)

// CanonicalBytes returns the encoding of b that HashBlock digests: compact
// JSON with keys in lexicographic order and the hash field left out.
// Timestamps are written as seconds with exactly six fractional digits.
func CanonicalBytes(b *Block) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"index":`)
	buf.WriteString(strconv.Itoa(b.Index))
	buf.WriteString(`,"previous_hash":`)
	writeString(&buf, b.PreviousHash)
	buf.WriteString(`,"proof":`)
	buf.WriteString(strconv.FormatInt(b.Proof, 10))
	buf.WriteString(`,"timestamp":`)
	buf.WriteString(formatTimestamp(b.Timestamp))
	buf.WriteString(`,"transactions":[`)
	for i, tx := range b.Transactions {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"amount":`)
		buf.WriteString(strconv.FormatInt(tx.Amount, 10))
		buf.WriteString(`,"recipient":`)
		writeString(&buf, tx.Recipient)
		buf.WriteString(`,"sender":`)
		writeString(&buf, tx.Sender)
		if tx.Teacher != nil {
			buf.WriteString(`,"teacher":`)
			writeString(&buf, *tx.Teacher)
		}
		buf.WriteByte('}')
	}
	buf.WriteString("]}")
	return buf.Bytes()
}

// HashBlock returns the lowercase hex SHA-256 of b's canonical encoding.
func HashBlock(b *Block) string {
	return Digest(CanonicalBytes(b))
}

// Digest returns the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// formatTimestamp renders t as decimal seconds since the epoch with
// microsecond precision, e.g. "1700000000.123456".
func formatTimestamp(t time.Time) string {
	us := t.UnixMicro()
	s := ""
	if us < 0 {
		s, us = "-", -us
	}
	sec, frac := us/1_000_000, us%1_000_000
	s += strconv.FormatInt(sec, 10) + "."
	f := strconv.FormatInt(frac, 10)
	for i := len(f); i < 6; i++ {
		s += "0"
	}
	return s + f
}

// writeString appends s as a JSON string literal. <, > and & are written
// as-is; U+2028 and U+2029 are still escaped. Encoding a string cannot fail.
func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
}
