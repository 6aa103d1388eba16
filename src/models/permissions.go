package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompletePermissions indicates a permission record missing one or more flags
var ErrIncompletePermissions = errors.New("permissions must set products, categories, orders, customers and blogs")

// Permissions holds one flag per capability. The record is always replaced as a whole.
type Permissions struct {
	Products   bool `json:"products"`
	Categories bool `json:"categories"`
	Orders     bool `json:"orders"`
	Customers  bool `json:"customers"`
	Blogs      bool `json:"blogs"`
}

// AllPermissions returns a record with every flag set
func AllPermissions() Permissions {
	return Permissions{Products: true, Categories: true, Orders: true, Customers: true, Blogs: true}
}

// Allows returns the stored flag for c. Unknown capabilities are never granted.
func (p Permissions) Allows(c Capability) bool {
	switch c {
	case CapabilityProducts:
		return p.Products
	case CapabilityCategories:
		return p.Categories
	case CapabilityOrders:
		return p.Orders
	case CapabilityCustomers:
		return p.Customers
	case CapabilityBlogs:
		return p.Blogs
	default:
		return false
	}
}

// Granted lists the capabilities whose flag is set
func (p Permissions) Granted() []Capability {
	granted := make([]Capability, 0, len(Capabilities))
	for _, c := range Capabilities {
		if p.Allows(c) {
			granted = append(granted, c)
		}
	}
	return granted
}

// PermissionFlags is the wire form of Permissions. Every field must be present.
type PermissionFlags struct {
	Products   *bool `json:"products" yaml:"products" binding:"required"`
	Categories *bool `json:"categories" yaml:"categories" binding:"required"`
	Orders     *bool `json:"orders" yaml:"orders" binding:"required"`
	Customers  *bool `json:"customers" yaml:"customers" binding:"required"`
	Blogs      *bool `json:"blogs" yaml:"blogs" binding:"required"`
}

// Resolve validates that all five flags are set and returns the fixed record
func (f PermissionFlags) Resolve() (Permissions, error) {
	var missing []string
	pick := func(name string, v *bool) bool {
		if v == nil {
			missing = append(missing, name)
			return false
		}
		return *v
	}

	p := Permissions{
		Products:   pick("products", f.Products),
		Categories: pick("categories", f.Categories),
		Orders:     pick("orders", f.Orders),
		Customers:  pick("customers", f.Customers),
		Blogs:      pick("blogs", f.Blogs),
	}
	if len(missing) > 0 {
		return Permissions{}, fmt.Errorf("%w (missing: %s)", ErrIncompletePermissions, strings.Join(missing, ", "))
	}
	return p, nil
}

// FlagsOf converts a record back to its wire form
func FlagsOf(p Permissions) PermissionFlags {
	return PermissionFlags{
		Products:   boolPtr(p.Products),
		Categories: boolPtr(p.Categories),
		Orders:     boolPtr(p.Orders),
		Customers:  boolPtr(p.Customers),
		Blogs:      boolPtr(p.Blogs),
	}
}

// PermissionsFromList builds a complete record where exactly the listed capabilities are granted
func PermissionsFromList(names []string) (Permissions, error) {
	var p Permissions
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		c, err := ParseCapability(name)
		if err != nil {
			return Permissions{}, err
		}
		switch c {
		case CapabilityProducts:
			p.Products = true
		case CapabilityCategories:
			p.Categories = true
		case CapabilityOrders:
			p.Orders = true
		case CapabilityCustomers:
			p.Customers = true
		case CapabilityBlogs:
			p.Blogs = true
		}
	}
	return p, nil
}

func boolPtr(v bool) *bool {
	return &v
}
