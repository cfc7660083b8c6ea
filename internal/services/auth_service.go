package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
	"github.com/xxwlkq/ecommerce-system/internal/validate"
)

// AuthService owns accounts, sessions, balances and favorites.
type AuthService struct {
	Store *repos.Store
	Log   *ActionLog
}

func NewAuthService(store *repos.Store, log *ActionLog) *AuthService {
	return &AuthService{Store: store, Log: log}
}

func newUserID() string {
	return "u-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *AuthService) Register(ctx context.Context, username, phone, password string) (*domain.User, error) {
	username, ok := validate.Username(username)
	if !ok {
		return nil, invalid("username", "2-20 letters, digits, '_', '.' or '-'")
	}
	phone, ok = validate.Phone(phone)
	if !ok {
		return nil, invalid("phone", "6-20 digits")
	}
	if !validate.Password(password) {
		return nil, invalid("password", "8-64 characters with upper, lower, digit and symbol")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := domain.User{
		ID:       newUserID(),
		Username: username,
		Hash:     string(hash),
		Phone:    phone,
		Balance:  decimal.Zero,
	}
	if err := s.Store.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.Store.Users.ByID(ctx, u.ID)
}

// Login accepts a user id, username or phone. Every failure is ErrBadCreds.
func (s *AuthService) Login(ctx context.Context, sid, identifier, password string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" || identifier == domain.AnonymousID {
		return nil, ErrBadCreds
	}
	u, err := s.Store.Users.ByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, repos.ErrNotFound) {
			applog.L().Error("login.lookup", zap.Error(err))
		}
		return nil, ErrBadCreds
	}
	if u.Hash == "" || bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Store.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Store.Users.UnbindSession(ctx, sid)
}

func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	return s.Store.Users.SessionUser(ctx, sid)
}

func (s *AuthService) Users(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users.List(ctx)
}

// AdjustBalance adds delta, flooring at zero; clamped reports the floor was hit.
func (s *AuthService) AdjustBalance(ctx context.Context, userID string, delta decimal.Decimal) (bal decimal.Decimal, clamped bool, err error) {
	err = s.Store.WithTx(ctx, func(r *repos.Repos) error {
		bal, clamped, err = r.Users.AdjustBalance(ctx, userID, delta)
		return err
	})
	if err != nil {
		return decimal.Zero, false, err
	}
	if clamped {
		applog.L().Warn("balance.clamped", zap.String("user_id", userID), zap.String("delta", delta.String()))
	}
	return bal, clamped, nil
}

// Recharge credits a positive amount and returns the new balance.
func (s *AuthService) Recharge(ctx context.Context, a Actor, amount decimal.Decimal, method string) (decimal.Decimal, error) {
	if a.User.Anonymous() {
		return decimal.Zero, ErrForbidden
	}
	if !validate.Amount(amount) {
		return decimal.Zero, invalid("amount", "must be greater than 0 with at most two decimals")
	}
	method, ok := validate.Text(method, 30)
	if !ok {
		return decimal.Zero, invalid("pay_method", "required")
	}
	var bal decimal.Decimal
	err := s.Store.WithTx(ctx, func(r *repos.Repos) error {
		var err error
		if bal, _, err = r.Users.AdjustBalance(ctx, a.User.ID, amount); err != nil {
			return err
		}
		rec := domain.ActionRecord{
			UserID:      a.User.ID,
			Username:    a.User.Username,
			ActionType:  domain.ActionRecharge,
			SessionID:   a.SessionID,
			Quantity:    1,
			TotalAmount: amount,
		}
		return s.Log.record(ctx, r, rec)
	})
	if err != nil {
		return decimal.Zero, err
	}
	applog.L().Info("balance.recharged", zap.String("user_id", a.User.ID), zap.String("method", method), zap.String("amount", amount.StringFixed(2)))
	return bal, nil
}

// AddFavorite reports false when the product was already a favorite.
func (s *AuthService) AddFavorite(ctx context.Context, a Actor, productID int64) (bool, error) {
	if a.User.Anonymous() {
		return false, ErrForbidden
	}
	var added bool
	err := s.Store.WithTx(ctx, func(r *repos.Repos) error {
		p, err := r.Products.Get(ctx, productID)
		if err != nil {
			return err
		}
		if added, err = r.Users.AddFavorite(ctx, a.User.ID, productID); err != nil || !added {
			return err
		}
		return s.Log.record(ctx, r, productAction(a, domain.ActionFavorite, p, 1, decimal.Zero))
	})
	return added, err
}

// RemoveFavorite reports false when the product was not a favorite.
func (s *AuthService) RemoveFavorite(ctx context.Context, a Actor, productID int64) (bool, error) {
	if a.User.Anonymous() {
		return false, ErrForbidden
	}
	return s.Store.Users.RemoveFavorite(ctx, a.User.ID, productID)
}

// Favorites lists the user's favorite products that still exist.
func (s *AuthService) Favorites(ctx context.Context, userID string) ([]domain.Product, error) {
	return s.Store.Users.FavoriteProducts(ctx, userID)
}

// UpdateProfile changes the given fields, keeping the others.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, username, phone *string) (*domain.User, error) {
	if username == nil && phone == nil {
		return nil, invalid("fields", "nothing to update")
	}
	var out *domain.User
	err := s.Store.WithTx(ctx, func(r *repos.Repos) error {
		u, err := r.Users.ByID(ctx, userID)
		if err != nil {
			return err
		}
		name, tel := u.Username, u.Phone
		if username != nil {
			var ok bool
			if name, ok = validate.Username(*username); !ok {
				return invalid("username", "2-20 letters, digits, '_', '.' or '-'")
			}
		}
		if phone != nil {
			var ok bool
			if tel, ok = validate.Phone(*phone); !ok {
				return invalid("phone", "6-20 digits")
			}
		}
		if err := r.Users.UpdateProfile(ctx, userID, name, tel); err != nil {
			return err
		}
		out, err = r.Users.ByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AuthService) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	return s.Log.Stats(ctx, userID)
}
