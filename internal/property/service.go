package property

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"titlechain/internal/fhe"
	"titlechain/internal/ledger"
	"titlechain/internal/property/metrics"
	"titlechain/internal/wallet"
	dErrors "titlechain/pkg/domain-errors"
	"titlechain/pkg/platform/audit"
	txcontext "titlechain/pkg/platform/tx"
	"titlechain/pkg/requestcontext"
)

// Encrypter is the slice of the encrypted-value pipeline the registry needs.
type Encrypter interface {
	Encrypt(ctx context.Context, value int64) (fhe.Ciphertext, error)
	EncryptWithProof(ctx context.Context, value int64) (fhe.Ciphertext, fhe.Proof, error)
	Sum(ctx context.Context, cts []fhe.Ciphertext) (fhe.Ciphertext, error)
	Decrypt(ctx context.Context, c fhe.Ciphertext) (fhe.Plaintext, error)
}

// Service implements the registry use cases for the connected wallet in ctx.
type Service struct {
	ledger    ledger.Client
	encrypter Encrypter
	runner    txcontext.Runner
	auditor   audit.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	portfolio singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTxRunner makes the ledger write and its audit event one unit of work.
func WithTxRunner(r txcontext.Runner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// NewService builds the registry service. auditor receives compliance events and
// must fail closed: a failed emit aborts the registration or transfer.
func NewService(client ledger.Client, encrypter Encrypter, auditor audit.Publisher, opts ...Option) *Service {
	s := &Service{
		ledger:    client,
		encrypter: encrypter,
		auditor:   auditor,
		runner:    txcontext.NewLockRunner(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register encrypts the numeric fields, proves the value ciphertext and records
// the property for the connected wallet.
func (s *Service) Register(ctx context.Context, in RegisterInput) (reg *Registration, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveRegistration(err)
		}
	}()

	owner, err := connectedWallet(ctx)
	if err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}

	value, valueProof, err := s.encrypter.EncryptWithProof(ctx, in.Value)
	if err != nil {
		return nil, err
	}
	area, err := s.encrypter.Encrypt(ctx, in.Area)
	if err != nil {
		return nil, err
	}
	yearBuilt, err := s.encrypter.Encrypt(ctx, in.YearBuilt)
	if err != nil {
		return nil, err
	}

	call := ledger.RegisterCall{
		Owner:       owner,
		Address:     in.Address,
		Description: in.Description,
		Value:       value,
		Area:        area,
		YearBuilt:   yearBuilt,
		InputProof:  valueProof,
	}

	var receipt *ledger.Receipt
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		receipt, err = s.ledger.RegisterProperty(ctx, call)
		if err != nil {
			return err
		}
		return s.auditor.Emit(ctx, s.event(ctx, audit.Event{
			Action:  audit.EventPropertyRegistered,
			Wallet:  owner,
			Subject: receipt.PropertyID.Dec(),
			TxHash:  receipt.TxHash,
		}))
	})
	if err != nil {
		s.logger.WarnContext(ctx, "property registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"owner", owner,
			"error", err,
		)
		return nil, translate(err)
	}

	record, err := s.ledger.PropertyInfo(ctx, receipt.PropertyID)
	if err != nil {
		return nil, translate(err)
	}
	return &Registration{Record: record, Receipt: receipt}, nil
}

// Transfer moves a property owned by the connected wallet to another address.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (receipt *ledger.Receipt, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveTransfer(err)
		}
	}()

	from, err := connectedWallet(ctx)
	if err != nil {
		return nil, err
	}
	id, err := ledger.ParsePropertyID(in.PropertyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid property id")
	}
	to, err := wallet.NormalizeAddress(in.To)
	if err != nil {
		return nil, err
	}
	if _, err := fhe.NewPlaintext(in.Value); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "value must be in [0, 2^32)")
	}

	record, err := s.ledger.PropertyInfo(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if record.Owner != from {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the current owner can transfer this property")
	}

	value, valueProof, err := s.encrypter.EncryptWithProof(ctx, in.Value)
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		receipt, err = s.ledger.TransferProperty(ctx, ledger.TransferCall{
			PropertyID:    id,
			From:          from,
			To:            to,
			TransferValue: value,
			InputProof:    valueProof,
		})
		if err != nil {
			return err
		}
		return s.auditor.Emit(ctx, s.event(ctx, audit.Event{
			Action:       audit.EventPropertyTransferred,
			Wallet:       from,
			Subject:      id.Dec(),
			Counterparty: to,
			TxHash:       receipt.TxHash,
		}))
	})
	if err != nil {
		s.logger.WarnContext(ctx, "property transfer failed",
			"request_id", requestcontext.RequestID(ctx),
			"property_id", id.Dec(),
			"error", err,
		)
		return nil, translate(err)
	}
	return receipt, nil
}

// Get returns one property.
func (s *Service) Get(ctx context.Context, rawID string) (*ledger.Record, error) {
	id, err := ledger.ParsePropertyID(rawID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid property id")
	}
	record, err := s.ledger.PropertyInfo(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return record, nil
}

// Search matches the term against property ids and addresses. A blank term
// returns no results.
func (s *Service) Search(ctx context.Context, term string) ([]*ledger.Record, error) {
	if len(term) > maxAddressLength {
		return nil, dErrors.New(dErrors.CodeValidation, "search term is too long")
	}
	if strings.TrimSpace(term) == "" {
		return []*ledger.Record{}, nil
	}
	records, err := s.ledger.Search(ctx, term, maxSearchResults)
	if err != nil {
		return nil, translate(err)
	}
	return records, nil
}

// Portfolio sums the encrypted values of every property the connected wallet
// owns. The total is never decrypted here. Concurrent requests for the same
// owner share one computation, which outlives the cancellation of whichever
// request started it.
func (s *Service) Portfolio(ctx context.Context) (*Portfolio, error) {
	owner, err := connectedWallet(ctx)
	if err != nil {
		return nil, err
	}

	shared := context.WithoutCancel(ctx)
	v, err, _ := s.portfolio.Do(owner, func() (any, error) {
		ctx := shared
		records, err := s.ledger.ListByOwner(ctx, owner)
		if err != nil {
			return nil, translate(err)
		}
		values := make([]fhe.Ciphertext, 0, len(records))
		for _, r := range records {
			values = append(values, r.Value)
		}
		total, err := s.encrypter.Sum(ctx, values)
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.ObservePortfolio(len(records))
		}
		return &Portfolio{Owner: owner, Properties: len(records), TotalValue: total}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Portfolio), nil
}

// Reveal decrypts the numeric fields of a property for its current owner.
func (s *Service) Reveal(ctx context.Context, rawID string) (d *Disclosure, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveDisclosure("property", err)
		}
	}()

	owner, err := connectedWallet(ctx)
	if err != nil {
		return nil, err
	}
	record, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if record.Owner != owner {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the current owner can decrypt this property")
	}

	var fields [3]fhe.Plaintext
	for i, c := range []fhe.Ciphertext{record.Value, record.Area, record.YearBuilt} {
		if fields[i], err = s.encrypter.Decrypt(ctx, c); err != nil {
			return nil, err
		}
	}
	s.logger.InfoContext(ctx, "property disclosed to owner",
		"request_id", requestcontext.RequestID(ctx),
		"property_id", record.ID.Dec(),
	)
	return &Disclosure{Record: record, Value: fields[0], Area: fields[1], YearBuilt: fields[2]}, nil
}

// PortfolioValue decrypts the portfolio total of the connected wallet.
func (s *Service) PortfolioValue(ctx context.Context) (v *PortfolioValuation, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveDisclosure("portfolio", err)
		}
	}()

	p, err := s.Portfolio(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.encrypter.Decrypt(ctx, p.TotalValue)
	if err != nil {
		return nil, err
	}
	return &PortfolioValuation{Owner: p.Owner, Properties: p.Properties, TotalValue: total}, nil
}

// AuthorizeDecrypt admits a raw ciphertext for decryption only when it is one of
// the encrypted fields of a property the connected wallet currently owns.
// Derived ciphertexts, such as evaluation results, are never admitted.
func (s *Service) AuthorizeDecrypt(ctx context.Context, c fhe.Ciphertext) error {
	owner, err := connectedWallet(ctx)
	if err != nil {
		return err
	}
	records, err := s.ledger.ListByOwner(ctx, owner)
	if err != nil {
		return translate(err)
	}
	for _, r := range records {
		if c == r.Value || c == r.Area || c == r.YearBuilt {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "ciphertext does not belong to a property you own")
}

func (s *Service) event(ctx context.Context, e audit.Event) audit.Event {
	e.RequestID = requestcontext.RequestID(ctx)
	e.ClientIP = requestcontext.ClientIP(ctx)
	e.Timestamp = requestcontext.Now(ctx)
	return e
}

func connectedWallet(ctx context.Context) (string, error) {
	if !requestcontext.IsConnected(ctx) {
		return "", dErrors.New(dErrors.CodeUnauthorized, "wallet connection required")
	}
	return requestcontext.WalletAddress(ctx), nil
}

