// Package catalog loads product catalogs and stock feeds into a product
// store.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// Store is the write side used by seeding and ingest.
type Store interface {
	List(ctx context.Context) ([]product.Product, error)
	FindAllByID(ctx context.Context, ids []string) ([]product.Product, error)
	Upsert(ctx context.Context, products ...product.Product) error
	UpdateQuantity(ctx context.Context, updates []product.QuantityUpdate) error
}

// Decode parses a JSON array of {id, name, price, quantity} objects. Price
// may be a JSON string or number.
func Decode(data []byte) ([]product.Product, error) {
	var out []product.Product
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product #%d", len(out))
		}
		out = append(out, p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return out, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			p.ID = v
			return err
		case "name":
			v, err := d.Str()
			p.Name = v
			return err
		case "price":
			var raw string
			switch d.Next() {
			case jx.String:
				v, err := d.Str()
				if err != nil {
					return err
				}
				raw = v
			default:
				v, err := d.Num()
				if err != nil {
					return err
				}
				raw = v.String()
			}
			price, err := decimal.NewFromString(raw)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			p.Price = price
			return nil
		case "quantity":
			v, err := d.Int()
			p.Quantity = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return p, err
	}

	switch {
	case p.ID == "":
		return p, errors.New("id is required")
	case p.Name == "":
		return p, errors.Errorf("%s: name is required", p.ID)
	case p.Price.IsNegative():
		return p, errors.Errorf("%s: negative price", p.ID)
	case p.Quantity < 0:
		return p, errors.Errorf("%s: negative quantity", p.ID)
	}
	return p, nil
}

// Seed upserts products into s.
func Seed(ctx context.Context, s Store, products []product.Product) error {
	if err := s.Upsert(ctx, products...); err != nil {
		return errors.Wrap(err, "upsert products")
	}
	return nil
}
