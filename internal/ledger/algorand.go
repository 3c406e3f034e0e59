package ledger

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/indexer"
	sdkcrypto "github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	sdktypes "github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/config"
	"github.com/opencampus-io/registrar-backend/internal/logger"
)

// AlgorandClient anchors records as Algorand standard assets: one
// capacity-capped token per course, one transfer per enrollment, one
// single-unit asset per certificate. All transactions are signed by a single
// admin account; the ledger is an admin-attested append-only log, not
// per-student custody.
type AlgorandClient struct {
	log        *logger.Logger
	algod      *algod.Client
	indexer    *indexer.Client
	account    sdkcrypto.Account
	timeout    time.Duration
	waitRounds uint64
	baseURL    string
}

func NewAlgorandClient(log *logger.Logger, cfg config.Ledger) (*AlgorandClient, error) {
	clientLog := log.With("client", "AlgorandClient")

	if strings.TrimSpace(cfg.AdminPrivateKey) == "" {
		return nil, fmt.Errorf("algorand: missing ALGORAND_ADMIN_PRIVATE_KEY")
	}
	rawKey, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cfg.AdminPrivateKey))
	if err != nil {
		return nil, fmt.Errorf("algorand: decode admin private key: %w", err)
	}
	if len(rawKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("algorand: admin private key must be %d bytes", ed25519.PrivateKeySize)
	}
	account, err := sdkcrypto.AccountFromPrivateKey(ed25519.PrivateKey(rawKey))
	if err != nil {
		return nil, fmt.Errorf("algorand: derive admin account: %w", err)
	}

	algodClient, err := algod.MakeClient(cfg.AlgodAddress, cfg.APIToken)
	if err != nil {
		return nil, fmt.Errorf("algorand: algod client: %w", err)
	}
	indexerClient, err := indexer.MakeClient(cfg.IndexerAddress, cfg.APIToken)
	if err != nil {
		return nil, fmt.Errorf("algorand: indexer client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	waitRounds := cfg.WaitRounds
	if waitRounds == 0 {
		waitRounds = 4
	}

	return &AlgorandClient{
		log:        clientLog,
		algod:      algodClient,
		indexer:    indexerClient,
		account:    account,
		timeout:    timeout,
		waitRounds: waitRounds,
		baseURL:    "https://university.edu",
	}, nil
}

func (c *AlgorandClient) CreateCourseToken(ctx context.Context, spec CourseTokenSpec) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	note, err := json.Marshal(courseTokenNote{
		CourseID: spec.CourseID.String(),
		Title:    spec.Title,
		Code:     spec.Code,
		Credits:  spec.Credits,
		Capacity: spec.Capacity,
		Fee:      spec.Fee,
	})
	if err != nil {
		return "", fmt.Errorf("algorand: encode course note: %w", err)
	}

	params, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return "", c.classify(err)
	}

	admin := c.account.Address.String()
	txn, err := transaction.MakeAssetCreateTxn(
		admin, note, params,
		uint64(spec.Capacity), 0, false,
		admin, admin, admin, admin,
		assetUnitName(spec.Code), "Course_"+spec.Code,
		fmt.Sprintf("%s/courses/%s", c.baseURL, spec.CourseID), "",
	)
	if err != nil {
		return "", fmt.Errorf("algorand: build asset-config txn: %w", err)
	}

	confirmed, err := c.signSendWait(ctx, txn)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(confirmed.assetIndex, 10), nil
}

func (c *AlgorandClient) RecordEnrollment(ctx context.Context, assetID string, studentID, courseID uuid.UUID) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	assetIndex, err := strconv.ParseUint(assetID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("algorand: invalid asset id %q: %w", assetID, err)
	}

	note, err := NewEnrollmentNote(studentID, courseID, time.Now()).Encode()
	if err != nil {
		return "", fmt.Errorf("algorand: encode enrollment note: %w", err)
	}

	params, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return "", c.classify(err)
	}

	// The admin account is both sender and receiver: the transfer exists to
	// put the enrollment note on chain against the course asset.
	admin := c.account.Address.String()
	txn, err := transaction.MakeAssetTransferTxn(admin, admin, 1, note, params, "", assetIndex)
	if err != nil {
		return "", fmt.Errorf("algorand: build asset-transfer txn: %w", err)
	}

	confirmed, err := c.signSendWait(ctx, txn)
	if err != nil {
		return "", err
	}
	return confirmed.txID, nil
}

func (c *AlgorandClient) IssueCertificate(ctx context.Context, spec CertificateSpec) (*CertificateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	issuedAt := time.Now().UTC()
	note, err := json.Marshal(certificateNote{
		Type:        "course_certificate",
		StudentID:   spec.StudentID.String(),
		StudentName: spec.StudentName,
		CourseID:    spec.CourseID.String(),
		CourseCode:  spec.CourseCode,
		CourseTitle: spec.CourseTitle,
		Grade:       spec.Grade,
		Credits:     spec.Credits,
		DateIssued:  issuedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("algorand: encode certificate note: %w", err)
	}

	params, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return nil, c.classify(err)
	}

	admin := c.account.Address.String()
	txn, err := transaction.MakeAssetCreateTxn(
		admin, note, params,
		1, 0, false,
		admin, admin, admin, admin,
		"CERT", fmt.Sprintf("Certificate_%s_%s", spec.CourseCode, shortID(spec.StudentID)),
		fmt.Sprintf("%s/certificates/%s/%s", c.baseURL, spec.CourseID, spec.StudentID), "",
	)
	if err != nil {
		return nil, fmt.Errorf("algorand: build certificate txn: %w", err)
	}

	confirmed, err := c.signSendWait(ctx, txn)
	if err != nil {
		return nil, err
	}
	return &CertificateResult{
		AssetID:       strconv.FormatUint(confirmed.assetIndex, 10),
		TransactionID: confirmed.txID,
		IssuedAt:      issuedAt,
	}, nil
}

func (c *AlgorandClient) LookupTransaction(ctx context.Context, txID string) (*TransactionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.indexer.LookupTransaction(txID).Do(ctx)
	if err != nil {
		return nil, c.classify(err)
	}
	txn := resp.Transaction

	record := &TransactionRecord{
		ID:             txn.Id,
		Note:           txn.Note,
		ConfirmedRound: txn.ConfirmedRound,
		Timestamp:      time.Unix(int64(txn.RoundTime), 0).UTC(),
		Fee:            txn.Fee,
	}
	if txn.AssetTransferTransaction.AssetId != 0 {
		record.AssetID = strconv.FormatUint(txn.AssetTransferTransaction.AssetId, 10)
	} else if txn.CreatedAssetIndex != 0 {
		record.AssetID = strconv.FormatUint(txn.CreatedAssetIndex, 10)
	}
	return record, nil
}

type confirmedTxn struct {
	txID       string
	assetIndex uint64
}

func (c *AlgorandClient) signSendWait(ctx context.Context, txn sdktypes.Transaction) (*confirmedTxn, error) {
	txID, stx, err := sdkcrypto.SignTransaction(c.account.PrivateKey, txn)
	if err != nil {
		return nil, fmt.Errorf("algorand: sign txn: %w", err)
	}
	if _, err := c.algod.SendRawTransaction(stx).Do(ctx); err != nil {
		return nil, c.classify(err)
	}

	pending, err := transaction.WaitForConfirmation(c.algod, txID, c.waitRounds, ctx)
	if err != nil {
		return nil, c.classify(err)
	}
	c.log.Info("ledger transaction confirmed", "tx_id", txID, "round", pending.ConfirmedRound)
	return &confirmedTxn{txID: txID, assetIndex: pending.AssetIndex}, nil
}

func (c *AlgorandClient) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "404") || strings.Contains(msg, "not found") || strings.Contains(msg, "no transaction found") {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if strings.Contains(msg, "rounds") && strings.Contains(msg, "wait") {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func assetUnitName(code string) string {
	unit := "C" + strings.ToUpper(strings.ReplaceAll(code, " ", ""))
	// Algorand unit names are capped at 8 bytes.
	if len(unit) > 8 {
		unit = unit[:8]
	}
	return unit
}

func shortID(id uuid.UUID) string {
	s := id.String()
	return s[:8]
}
