package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// Calc evaluates a sum of products over non-negative integers, e.g.
// "2+3*4". Only digits, '+' and '*' are allowed.
func Calc(exp string) (float64, error) {
	var sum float64
	for _, term := range strings.Split(exp, "+") {
		product := 1.0
		for _, factor := range strings.Split(term, "*") {
			if !isDigits(factor) {
				return 0, fmt.Errorf("invalid input %q: only numbers, '+' and '*' allowed", factor)
			}
			v, err := strconv.ParseFloat(factor, 64)
			if err != nil {
				return 0, err
			}
			product *= v
		}
		sum += product
	}
	return sum, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
