package ledger

import "time"

// Issuer is the reserved sender identity that may create credit without
// holding a balance.
const Issuer = "Teacher"

const (
	// GenesisPreviousHash is the sentinel stored as the genesis block's
	// previous hash.
	GenesisPreviousHash = "1"

	// GenesisProof is the proof value carried by the genesis block.
	GenesisProof int64 = 100
)

// Transaction moves amount from sender to recipient. Teacher is the optional
// supervising teacher and is nil when absent.
type Transaction struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    int64   `json:"amount"`
	Teacher   *string `json:"teacher,omitempty"`
}

// NewTransaction builds a Transaction. An empty teacher leaves the field unset.
func NewTransaction(sender, recipient string, amount int64, teacher string) Transaction {
	tx := Transaction{Sender: sender, Recipient: recipient, Amount: amount}
	if teacher != "" {
		tx.Teacher = &teacher
	}
	return tx
}

// IsReward reports whether the transaction was issued by the teacher.
func (t Transaction) IsReward() bool {
	return t.Sender == Issuer
}

// TeacherName returns the supervising teacher, or "" when unset.
func (t Transaction) TeacherName() string {
	if t.Teacher == nil {
		return ""
	}
	return *t.Teacher
}

func (t Transaction) clone() Transaction {
	if t.Teacher != nil {
		name := *t.Teacher
		t.Teacher = &name
	}
	return t
}

// Block is a sealed batch of transactions. Blocks are never modified after
// SealBlock returns; callers receive copies.
type Block struct {
	Index        int           `json:"index"`
	Timestamp    time.Time     `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	Proof        int64         `json:"proof"`
	PreviousHash string        `json:"previous_hash"`
	Hash         string        `json:"hash"`
}

// Clone returns a deep copy of b.
func (b *Block) Clone() *Block {
	cp := *b
	cp.Transactions = make([]Transaction, len(b.Transactions))
	for i, tx := range b.Transactions {
		cp.Transactions[i] = tx.clone()
	}
	return &cp
}

// RewardEntry records one credit issued by the teacher.
type RewardEntry struct {
	Teacher string `json:"teacher"`
	Student string `json:"student"`
	Amount  int64  `json:"amount"`
}

// TransferEntry records one student-to-student transfer.
type TransferEntry struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}
