package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConsumeVerificationCodeSQL grants verification and clears the code in one
// statement. The WHERE clause is the precondition check: two concurrent
// requests holding the same code cannot both match, so a one time token can
// never be spent twice.
var ConsumeVerificationCodeSQL = `UPDATE "accounts" AS "acc"
SET
	"is_verified" = TRUE,
	"verification_code" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acc"."verification_code" = ?
RETURNING *;`

// SetResetTokenSQL stores a reset token and its expiry together; the pair is
// never written one without the other.
var SetResetTokenSQL = `UPDATE "accounts" AS "acc"
SET
	"reset_password_token" = ?,
	"reset_password_expires_in" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acc"."id" = ?
RETURNING *;`

// ConsumeResetTokenSQL replaces the password hash and clears both reset
// fields in one statement. Expiry is re-checked here, at consume time, so a
// stale prior validation cannot be trusted by mistake.
var ConsumeResetTokenSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?,
	"reset_password_token" = NULL,
	"reset_password_expires_in" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acc"."reset_password_token" = ?
AND
	"acc"."reset_password_expires_in" > CURRENT_TIMESTAMP
RETURNING *;`

type Accounts interface {
	repository.Repository[*Account]

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	GetByUsername(ctx context.Context, username string) (*Account, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	GetByResetToken(ctx context.Context, token string) (*Account, error)
	GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error)

	ConsumeVerificationCode(ctx context.Context, code string) (*Account, error)
	ConsumeVerificationCodeTx(ctx context.Context, tx bun.IDB, code string) (*Account, error)
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresIn time.Time) (*Account, error)
	SetResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresIn time.Time) (*Account, error)
	ConsumeResetToken(ctx context.Context, token, passwordHash string) (*Account, error)
	ConsumeResetTokenTx(ctx context.Context, tx bun.IDB, token, passwordHash string) (*Account, error)
}

type accountsRepo struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accountsRepo)(nil)
	_ repository.Repository[*Account] = (*accountsRepo)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &accountsRepo{
		Repository: repo,
		db:         db,
	}
}

func (a *accountsRepo) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

func (a *accountsRepo) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	return a.CreateTx(ctx, tx, account)
}

func (a *accountsRepo) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accountsRepo) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *accountsRepo) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return a.GetByUsernameTx(ctx, a.db, username)
}

func (a *accountsRepo) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Account, error) {
	return a.getByColumn(ctx, tx, "username", username)
}

func (a *accountsRepo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accountsRepo) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	return a.getByColumn(ctx, tx, "email", email)
}

func (a *accountsRepo) GetByResetToken(ctx context.Context, token string) (*Account, error) {
	return a.GetByResetTokenTx(ctx, a.db, token)
}

func (a *accountsRepo) GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error) {
	return a.getByColumn(ctx, tx, "reset_password_token", token)
}

func (a *accountsRepo) getByColumn(ctx context.Context, tx bun.IDB, column, value string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					column: value,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accountsRepo) ConsumeVerificationCode(ctx context.Context, code string) (*Account, error) {
	return a.ConsumeVerificationCodeTx(ctx, a.db, code)
}

func (a *accountsRepo) ConsumeVerificationCodeTx(ctx context.Context, tx bun.IDB, code string) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, tx, ConsumeVerificationCodeSQL, code)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}

func (a *accountsRepo) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresIn time.Time) (*Account, error) {
	return a.SetResetTokenTx(ctx, a.db, id, token, expiresIn)
}

func (a *accountsRepo) SetResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresIn time.Time) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, tx, SetResetTokenSQL, token, expiresIn, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0], nil
}

func (a *accountsRepo) ConsumeResetToken(ctx context.Context, token, passwordHash string) (*Account, error) {
	return a.ConsumeResetTokenTx(ctx, a.db, token, passwordHash)
}

func (a *accountsRepo) ConsumeResetTokenTx(ctx context.Context, tx bun.IDB, token, passwordHash string) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, tx, ConsumeResetTokenSQL, passwordHash, token)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
