package products

import (
	"github.com/dawa-pos/dawa/internal/platform/httpx"
	"github.com/dawa-pos/dawa/internal/shared"
)

func (f ProductForm) normalize() ProductForm {
	f.Name = shared.CleanName(f.Name)
	f.GenericName = shared.CleanName(f.GenericName)
	return f
}

func (f ProductPatch) normalize() ProductPatch {
	if f.Name != nil {
		v := shared.CleanName(*f.Name)
		f.Name = &v
	}
	if f.GenericName != nil {
		v := shared.CleanName(*f.GenericName)
		f.GenericName = &v
	}
	return f
}

func (f ProductPatch) validate() error {
	if err := httpx.Validate(f); err != nil {
		return err
	}
	verr := &shared.ValidationError{}
	if f.Name != nil && *f.Name == "" {
		verr.Add("name", "this field may not be blank")
	}
	if f.GenericName != nil && *f.GenericName == "" {
		verr.Add("generic_name", "this field may not be blank")
	}
	return verr.OrNil()
}
