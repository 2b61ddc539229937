package drive

import (
	"context"
	"errors"
	"fmt"

	drivev2 "google.golang.org/api/drive/v2"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

// Properties go through the v2 properties resource, which can address a
// single key and visibility. The v3 file map cannot delete a key.

func toProperty(p *drivev2.Property) domain.Property {
	return domain.Property{
		Key:        p.Key,
		Value:      p.Value,
		Visibility: domain.PropertyVisibility(p.Visibility),
	}
}

func visibilityOrDefault(v domain.PropertyVisibility) domain.PropertyVisibility {
	if v == "" {
		return domain.VisibilityPrivate
	}
	return v
}

// ListProperties returns all properties visible on a file.
func (c *Client) ListProperties(ctx context.Context, fileID string) ([]domain.Property, error) {
	var list *drivev2.PropertyList
	err := c.call(ctx, "properties.list "+fileID, func() (err error) {
		list, err = c.legacy.Properties.List(fileID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list properties of %s: %w", fileID, err)
	}

	props := make([]domain.Property, 0, len(list.Items))
	for _, p := range list.Items {
		props = append(props, toProperty(p))
	}
	return props, nil
}

// GetProperty returns one property. Visibility defaults to private.
func (c *Client) GetProperty(
	ctx context.Context, fileID, key string, visibility domain.PropertyVisibility,
) (*domain.Property, error) {
	var p *drivev2.Property
	err := c.call(ctx, "properties.get "+fileID, func() (err error) {
		p, err = c.legacy.Properties.Get(fileID, key).
			Visibility(string(visibilityOrDefault(visibility))).
			Context(ctx).
			Do()
		return err
	})
	if errors.Is(err, google.ErrNotFound) {
		return nil, fmt.Errorf("property %q on %s: %w", key, fileID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get property %q on %s: %w", key, fileID, err)
	}
	prop := toProperty(p)
	return &prop, nil
}

// SetProperty inserts a property or replaces its value.
func (c *Client) SetProperty(ctx context.Context, fileID string, prop domain.Property) (*domain.Property, error) {
	if prop.Key == "" {
		return nil, fmt.Errorf("set property on %s: %w", fileID, domain.ErrInvalidInput)
	}
	req := &drivev2.Property{
		Key:        prop.Key,
		Value:      prop.Value,
		Visibility: string(visibilityOrDefault(prop.Visibility)),
	}

	var p *drivev2.Property
	err := c.call(ctx, "properties.insert "+fileID, func() (err error) {
		p, err = c.legacy.Properties.Insert(fileID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set property %q on %s: %w", prop.Key, fileID, err)
	}
	out := toProperty(p)
	return &out, nil
}

// DeleteProperty removes a property. A missing property is not an error.
func (c *Client) DeleteProperty(ctx context.Context, fileID, key string, visibility domain.PropertyVisibility) error {
	err := c.call(ctx, "properties.delete "+fileID, func() error {
		return c.legacy.Properties.Delete(fileID, key).
			Visibility(string(visibilityOrDefault(visibility))).
			Context(ctx).
			Do()
	})
	if err != nil && !errors.Is(err, google.ErrNotFound) {
		return fmt.Errorf("delete property %q on %s: %w", key, fileID, err)
	}
	return nil
}
