package api

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// listQuery holds the security list query parameters.
type listQuery struct {
	Page     int    `validate:"gte=1"`
	PageSize int    `validate:"gte=1,lte=100"`
	Name     string `validate:"max=64"`
	TsCode   string `validate:"max=16"`
	Industry string `validate:"max=64"`
}

// pageQuery holds the adjustment table query parameters.
type pageQuery struct {
	Page int `validate:"gte=1"`
}

func parseListQuery(q url.Values) (listQuery, error) {
	lq := listQuery{
		Name:     strings.TrimSpace(q.Get("name")),
		TsCode:   strings.TrimSpace(q.Get("ts_code")),
		Industry: strings.TrimSpace(q.Get("industry")),
	}
	var err error
	if lq.Page, err = intParam(q, "page", 1); err != nil {
		return lq, err
	}
	if lq.PageSize, err = intParam(q, "page_size", 10); err != nil {
		return lq, err
	}
	return lq, check(lq)
}

func parsePageQuery(q url.Values) (pageQuery, error) {
	page, err := intParam(q, "page", 1)
	if err != nil {
		return pageQuery{}, err
	}
	pq := pageQuery{Page: page}
	return pq, check(pq)
}

func intParam(q url.Values, name string, def int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// check validates v and turns the first failure into a readable message.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := paramName(fe.Field())
	switch fe.Tag() {
	case "gte":
		return fmt.Errorf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Errorf("%s must be less than or equal to %s", field, fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Errorf("%s failed validation: %s", field, fe.Tag())
	}
}

var paramNames = map[string]string{
	"Page":     "page",
	"PageSize": "page_size",
	"Name":     "name",
	"TsCode":   "ts_code",
	"Industry": "industry",
}

func paramName(field string) string {
	if n, ok := paramNames[field]; ok {
		return n
	}
	return field
}
