package arweave

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"

	"mintgate/internal/issuance/models"
)

// Transaction is a format-2 data transaction in wire form. All byte fields
// are base64url without padding.
type Transaction struct {
	Format    int    `json:"format"`
	ID        string `json:"id"`
	LastTx    string `json:"last_tx"`
	Owner     string `json:"owner"`
	Tags      []Tag  `json:"tags"`
	Target    string `json:"target"`
	Quantity  string `json:"quantity"`
	Data      string `json:"data"`
	DataSize  string `json:"data_size"`
	DataRoot  string `json:"data_root"`
	Reward    string `json:"reward"`
	Signature string `json:"signature"`
}

// Tag is the wire form of a key/value pair: both sides base64url-encoded.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func encodeTags(tags []models.Tag) []Tag {
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, Tag{
			Name:  base64.RawURLEncoding.EncodeToString([]byte(t.Name)),
			Value: base64.RawURLEncoding.EncodeToString([]byte(t.Value)),
		})
	}
	return out
}

// NewTransaction assembles an unsigned data transaction. reward is in the
// network's native unit (winston) and anchor is a recent tx anchor fetched
// live; both bind the transaction to this attempt.
func NewTransaction(wallet *Wallet, data []byte, tags []models.Tag, reward int64, anchor string) *Transaction {
	return &Transaction{
		Format:   2,
		LastTx:   anchor,
		Owner:    wallet.Owner(),
		Tags:     encodeTags(tags),
		Quantity: "0",
		Data:     base64.RawURLEncoding.EncodeToString(data),
		DataSize: strconv.Itoa(len(data)),
		DataRoot: base64.RawURLEncoding.EncodeToString(dataRoot(data)),
		Reward:   strconv.FormatInt(reward, 10),
	}
}

// signatureData builds the deep-hash structure the signature binds. Any
// change to owner, reward, anchor, tags or data invalidates the signature,
// which is why a retry must rebuild the transaction from scratch.
func (t *Transaction) signatureData() ([]byte, error) {
	owner, err := base64.RawURLEncoding.DecodeString(t.Owner)
	if err != nil {
		return nil, fmt.Errorf("decode owner: %w", err)
	}
	lastTx, err := base64.RawURLEncoding.DecodeString(t.LastTx)
	if err != nil {
		return nil, fmt.Errorf("decode anchor: %w", err)
	}
	root, err := base64.RawURLEncoding.DecodeString(t.DataRoot)
	if err != nil {
		return nil, fmt.Errorf("decode data root: %w", err)
	}

	tagChunks := make([]deepHashChunk, 0, len(t.Tags))
	for _, tag := range t.Tags {
		name, err := base64.RawURLEncoding.DecodeString(tag.Name)
		if err != nil {
			return nil, fmt.Errorf("decode tag name: %w", err)
		}
		value, err := base64.RawURLEncoding.DecodeString(tag.Value)
		if err != nil {
			return nil, fmt.Errorf("decode tag value: %w", err)
		}
		tagChunks = append(tagChunks, list(blob(name), blob(value)))
	}

	payload := list(
		blobString("2"),
		blob(owner),
		blobString(t.Target),
		blobString(t.Quantity),
		blobString(t.Reward),
		blob(lastTx),
		deepHashChunk{list: tagChunks},
		blobString(t.DataSize),
		blob(root),
	)
	return deepHash(payload), nil
}

// Sign computes the signature and the derived transaction id. The id is set
// exactly once; signing an already-signed transaction is a programming
// error surfaced as such.
func (t *Transaction) Sign(wallet *Wallet) error {
	if t.ID != "" {
		return fmt.Errorf("transaction already signed")
	}

	payload, err := t.signatureData()
	if err != nil {
		return err
	}

	digest := sha256.Sum256(payload)
	sig, err := wallet.Sign(digest[:])
	if err != nil {
		return err
	}

	idSum := sha256.Sum256(sig)
	t.Signature = base64.RawURLEncoding.EncodeToString(sig)
	t.ID = base64.RawURLEncoding.EncodeToString(idSum[:])
	return nil
}
