package file

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/soch-storefront/internal/domain/catalog"
)

// Decode reads a JSON array of products.
//
// A product with a "volumes" array is a fragrance; anything else is apparel.
// Ids and prices may be JSON numbers or strings.
func Decode(r io.Reader) ([]catalog.Product, error) {
	var products []catalog.Product
	d := jx.Decode(r, 32*1024)
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product #%d", len(products))
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder) (catalog.Product, error) {
	var (
		p         catalog.Product
		apparel   catalog.Apparel
		fragrance catalog.Fragrance
		isScent   bool
		inStock   = true
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = scalar(d)
		case "name":
			p.Name, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "subCategory":
			p.SubCategory, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "images":
			p.Images, err = strs(d)
		case "image":
			var img string
			img, err = d.Str()
			p.Images = append(p.Images, img)
		case "inStock":
			inStock, err = d.Bool()
		case "price":
			apparel.Price, err = money(d)
		case "originalPrice":
			apparel.OriginalPrice, err = money(d)
		case "sizes":
			apparel.Sizes, err = strs(d)
		case "colors":
			apparel.Colors, err = strs(d)
		case "fabric":
			apparel.Fabric, err = d.Str()
		case "volumes":
			isScent = true
			fragrance.Volumes, err = volumes(d)
		case "notes":
			isScent = true
			fragrance.Notes, err = notes(d)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return catalog.Product{}, err
	}

	if p.ID == "" {
		return catalog.Product{}, errors.New("missing id")
	}
	p.InStock = inStock
	if isScent {
		p.Details = fragrance
	} else {
		p.Details = apparel
	}
	return p, nil
}

func volumes(d *jx.Decoder) ([]catalog.Volume, error) {
	var out []catalog.Volume
	err := d.Arr(func(d *jx.Decoder) error {
		var v catalog.Volume
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "label", "size":
				v.Label, err = d.Str()
			case "price":
				v.Price, err = money(d)
			case "originalPrice":
				v.OriginalPrice, err = money(d)
			default:
				err = d.Skip()
			}
			return errors.Wrap(err, key)
		}); err != nil {
			return err
		}
		if v.Label == "" {
			return errors.New("volume without label")
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func notes(d *jx.Decoder) (catalog.Notes, error) {
	var n catalog.Notes
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "top":
			n.Top, err = d.Str()
		case "heart", "middle":
			n.Heart, err = d.Str()
		case "base":
			n.Base, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	return n, err
}

func strs(d *jx.Decoder) ([]string, error) {
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// scalar reads a string or a number as text.
func scalar(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", errors.Errorf("unexpected %s", d.Next())
	}
}

func money(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return decimal.Zero, d.Null()
	}
	s, err := scalar(d)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "parse amount")
	}
	return v, nil
}
