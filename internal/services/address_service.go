package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
	"github.com/xxwlkq/ecommerce-system/internal/validate"
)

type AddressInput struct {
	Receiver  string `json:"receiver"`
	Phone     string `json:"phone"`
	Province  string `json:"province"`
	City      string `json:"city"`
	Detail    string `json:"detail_address"`
	IsDefault bool   `json:"is_default"`
}

func (in AddressInput) check() (AddressInput, error) {
	var ok bool
	if in.Receiver, ok = validate.Text(in.Receiver, 50); !ok {
		return in, invalid("receiver", "required, at most 50 characters")
	}
	if in.Phone, ok = validate.Phone(in.Phone); !ok {
		return in, invalid("phone", "6-20 digits")
	}
	if in.Detail, ok = validate.Text(in.Detail, 200); !ok {
		return in, invalid("detail_address", "required, at most 200 characters")
	}
	in.Province = strings.TrimSpace(in.Province)
	in.City = strings.TrimSpace(in.City)
	if utf8.RuneCountInString(in.Province) > 50 || utf8.RuneCountInString(in.City) > 50 {
		return in, invalid("region", "at most 50 characters")
	}
	return in, nil
}

// AddressService keeps exactly one default address for any user who has
// addresses.
type AddressService struct {
	Store *repos.Store
}

func NewAddressService(store *repos.Store) *AddressService { return &AddressService{Store: store} }

func (s *AddressService) List(ctx context.Context, userID string) ([]domain.Address, error) {
	return s.Store.Addresses.List(ctx, userID)
}

func (s *AddressService) Get(ctx context.Context, id int64, userID string) (domain.Address, error) {
	return s.Store.Addresses.Get(ctx, id, userID)
}

// Add stores the address; a user's first address becomes the default.
func (s *AddressService) Add(ctx context.Context, userID string, in AddressInput) (domain.Address, error) {
	in, err := in.check()
	if err != nil {
		return domain.Address{}, err
	}
	var out domain.Address
	err = s.Store.WithTx(ctx, func(r *repos.Repos) error {
		_, err := r.Addresses.Default(ctx, userID)
		switch {
		case errors.Is(err, repos.ErrNotFound):
			in.IsDefault = true
		case err != nil:
			return err
		case in.IsDefault:
			if err := r.Addresses.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		id, err := r.Addresses.Create(ctx, domain.Address{
			UserID:    userID,
			Receiver:  in.Receiver,
			Phone:     in.Phone,
			Province:  in.Province,
			City:      in.City,
			Detail:    in.Detail,
			IsDefault: in.IsDefault,
		})
		if err != nil {
			return err
		}
		out, err = r.Addresses.Get(ctx, id, userID)
		return err
	})
	return out, err
}

// Update writes the address as given. Clearing the default hands it to the
// user's oldest other address; a sole address stays the default.
func (s *AddressService) Update(ctx context.Context, id int64, userID string, in AddressInput) (domain.Address, error) {
	in, err := in.check()
	if err != nil {
		return domain.Address{}, err
	}
	var out domain.Address
	err = s.Store.WithTx(ctx, func(r *repos.Repos) error {
		cur, err := r.Addresses.Get(ctx, id, userID)
		if err != nil {
			return err
		}
		isDefault := in.IsDefault
		switch {
		case in.IsDefault && !cur.IsDefault:
			if err := r.Addresses.ClearDefault(ctx, userID); err != nil {
				return err
			}
		case !in.IsDefault && cur.IsDefault:
			moved, err := r.Addresses.PromoteOldest(ctx, userID, id)
			if err != nil {
				return err
			}
			isDefault = !moved
		}
		next := domain.Address{
			ID:        id,
			UserID:    userID,
			Receiver:  in.Receiver,
			Phone:     in.Phone,
			Province:  in.Province,
			City:      in.City,
			Detail:    in.Detail,
			IsDefault: isDefault,
		}
		if err := r.Addresses.Update(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (s *AddressService) SetDefault(ctx context.Context, id int64, userID string) error {
	return s.Store.WithTx(ctx, func(r *repos.Repos) error {
		a, err := r.Addresses.Get(ctx, id, userID)
		if err != nil {
			return err
		}
		if err := r.Addresses.ClearDefault(ctx, userID); err != nil {
			return err
		}
		a.IsDefault = true
		return r.Addresses.Update(ctx, a)
	})
}

// Delete removes the address; when it was the default the user's oldest
// remaining address takes over.
func (s *AddressService) Delete(ctx context.Context, id int64, userID string) error {
	return s.Store.WithTx(ctx, func(r *repos.Repos) error {
		a, err := r.Addresses.Get(ctx, id, userID)
		if err != nil {
			return err
		}
		if err := r.Addresses.Delete(ctx, id, userID); err != nil {
			return err
		}
		if !a.IsDefault {
			return nil
		}
		_, err = r.Addresses.PromoteOldest(ctx, userID, id)
		return err
	})
}
