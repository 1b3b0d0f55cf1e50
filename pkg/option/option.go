// Package option parses the exchange notation for option contracts, e.g.
// +FRHC.16SEP2022.C55.
package option

import (
	"cmp"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coachpo/tradernet/errs"
)

const (
	// Call is the numeric right of a call.
	Call = 1
	// Put is the numeric right of a put.
	Put = -1

	dateLayout = "02Jan2006"
)

var notation = regexp.MustCompile(`^\+(\D+(\d+)?)\.(\d{2}\D{3}\d{4})\.([CP])(\d+(\.\d*)?)$`)

// Contract identifies an option contract. Symbol and Location do not take
// part in equality or ordering.
type Contract struct {
	Symbol             string
	Ticker             string
	Location           string
	Right              int
	Strike             decimal.Decimal
	Maturity           time.Time
	SymbolicExpiration string
}

// Parse decodes an option symbol.
func Parse(symbol string) (Contract, error) {
	m := notation.FindStringSubmatch(symbol)
	if m == nil {
		return Contract{}, errs.Invalid("option.parse", "Invalid Tradernet option symbol: "+symbol)
	}
	strike, err := decimal.NewFromString(m[5])
	if err != nil {
		return Contract{}, errs.New("option.parse", errs.CodeInvalid,
			errs.WithMessage("invalid strike in "+symbol), errs.WithCause(err))
	}
	maturity, err := DecodeDate(m[3])
	if err != nil {
		return Contract{}, errs.New("option.parse", errs.CodeInvalid,
			errs.WithMessage("Invalid Tradernet option symbol: "+symbol), errs.WithCause(err))
	}
	right := Call
	if m[4] == "P" {
		right = Put
	}
	return Contract{
		Symbol:             symbol,
		Ticker:             m[1],
		Right:              right,
		Strike:             strike,
		Maturity:           maturity,
		SymbolicExpiration: m[3],
	}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(symbol string) Contract {
	c, err := Parse(symbol)
	if err != nil {
		panic(err)
	}
	return c
}

// Underlying returns the ticker, suffixed with the location when one is set.
func (c Contract) Underlying() string {
	if c.Location != "" {
		return c.Ticker + "." + c.Location
	}
	return c.Ticker
}

// IsCall reports whether the contract is a call.
func (c Contract) IsCall() bool { return c.Right != Put }

// SymbolicRight returns "C" or "P".
func (c Contract) SymbolicRight() string {
	if c.Right == Call {
		return "C"
	}
	return "P"
}

// NumericRight maps a call flag to +1 or -1.
func NumericRight(isCall bool) int {
	if isCall {
		return Call
	}
	return Put
}

// OSI renders the OCC-style identifier: ticker, YYMMDD, right, then the
// strike as five dollar digits and three decimal digits.
func (c Contract) OSI() string {
	dollars, cents, _ := strings.Cut(c.Strike.String(), ".")
	if len(cents) > 3 {
		cents = cents[:3]
	}
	return c.Ticker + c.Maturity.Format("060102") + c.SymbolicRight() +
		pad(dollars, 5, true) + pad(cents, 3, false)
}

func (c Contract) String() string {
	right := "Call"
	if c.Right == Put {
		right = "Put"
	}
	return fmt.Sprintf("%s @ %s %s %s", c.Underlying(), c.Strike.String(), right, c.Maturity.Format(time.DateOnly))
}

// Equal compares underlying, maturity, strike and right.
func (c Contract) Equal(other Contract) bool {
	return c.Compare(other) == 0
}

// Compare orders by underlying, maturity, strike, then right.
func (c Contract) Compare(other Contract) int {
	if v := cmp.Compare(c.Underlying(), other.Underlying()); v != 0 {
		return v
	}
	if v := c.Maturity.Compare(other.Maturity); v != 0 {
		return v
	}
	if v := c.Strike.Cmp(other.Strike); v != 0 {
		return v
	}
	return cmp.Compare(c.Right, other.Right)
}

// EncodeDate renders a maturity as DDMMMYYYY, upper case.
func EncodeDate(t time.Time) string {
	return strings.ToUpper(t.Format(dateLayout))
}

// DecodeDate parses a DDMMMYYYY token. The month is case-insensitive.
func DecodeDate(token string) (time.Time, error) {
	t, err := time.Parse(dateLayout, token)
	if err != nil {
		return time.Time{}, errs.New("option.decode_date", errs.CodeInvalid,
			errs.WithMessage("invalid expiration "+token), errs.WithCause(err))
	}
	return t, nil
}

func pad(s string, width int, left bool) string {
	if len(s) >= width {
		return s
	}
	if left {
		return strings.Repeat("0", width-len(s)) + s
	}
	return s + strings.Repeat("0", width-len(s))
}
