// Package ledger implements the EduCoin chain: an append-only sequence of
// hash-linked blocks recording credits issued by the teacher and transfers
// between students.
//
// The chain begins with a genesis block (index 1, previous hash "1",
// proof 100). Every later block stores the SHA-256 of its predecessor's
// canonical encoding, so rewriting any sealed field is detectable via Verify.
//
// Alongside the chain the Engine keeps running balances and two derived
// histories (rewards and transfers). Both are appended at submission time and
// never recomputed.
package ledger
