// internal/adapters/out/shopify/catalog_source.go
package shopify

import (
	"context"

	"chatbridge/internal/domain/catalog"
)

// FetchAll implements catalog.Source: one Storefront query for products
// plus their collection membership.
func (c *StorefrontClient) FetchAll(ctx context.Context) ([]catalog.Entry, error) {
	query := `
{
  products(first: 250) {
    edges {
      node {
        id
        title
        description
        vendor
        productType
        tags
        availableForSale
        featuredImage { url }
        collections(first: 10) {
          edges {
            node {
              id
              title
            }
          }
        }
        priceRange {
          minVariantPrice {
            amount
            currencyCode
          }
        }
        variants(first: 1) {
          edges {
            node { id }
          }
        }
      }
    }
  }
}`

	var data struct {
		Products struct {
			Edges []struct {
				Node gqlProduct `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := c.execute(ctx, query, nil, &data); err != nil {
		return nil, err
	}

	entries := make([]catalog.Entry, 0, len(data.Products.Edges))
	for _, e := range data.Products.Edges {
		entries = append(entries, e.Node.toEntry())
	}
	return entries, nil
}

type gqlProduct struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Vendor           string   `json:"vendor"`
	ProductType      string   `json:"productType"`
	Tags             []string `json:"tags"`
	AvailableForSale bool     `json:"availableForSale"`
	FeaturedImage    *struct {
		URL string `json:"url"`
	} `json:"featuredImage"`
	Collections struct {
		Edges []struct {
			Node struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"collections"`
	PriceRange struct {
		MinVariantPrice gqlMoney `json:"minVariantPrice"`
	} `json:"priceRange"`
	Variants struct {
		Edges []struct {
			Node struct {
				ID string `json:"id"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

func (p gqlProduct) toEntry() catalog.Entry {
	cols := make([]catalog.CollectionRef, 0, len(p.Collections.Edges))
	for _, ce := range p.Collections.Edges {
		cols = append(cols, catalog.CollectionRef{ID: ce.Node.ID, Title: ce.Node.Title})
	}

	variantID := ""
	if len(p.Variants.Edges) > 0 {
		variantID = p.Variants.Edges[0].Node.ID
	}
	imageURL := ""
	if p.FeaturedImage != nil {
		imageURL = p.FeaturedImage.URL
	}

	return catalog.Entry{
		ID:               p.ID,
		Title:            p.Title,
		Description:      p.Description,
		Vendor:           p.Vendor,
		ProductType:      p.ProductType,
		Tags:             p.Tags,
		Collections:      cols,
		PriceMinorUnits:  minorUnits(p.PriceRange.MinVariantPrice.Amount),
		Currency:         p.PriceRange.MinVariantPrice.CurrencyCode,
		Available:        p.AvailableForSale,
		PrimaryVariantID: variantID,
		ImageURL:         imageURL,
	}
}
