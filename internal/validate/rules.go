package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// OrganizationTypes are the legal-entity abbreviations accepted in an organisation name.
var OrganizationTypes = []string{
	"ОАО", "ООО", "ЗАО", "ПАО", "НКО", "ГК", "АО", "ТСЖ", "КФХ",
	"ИП", "АНО", "НП", "ОП", "ФГУП", "ФСК", "ФСБ", "ФСС", "ФСТЭК",
}

// MinWords is the default word count for free-text fields.
const MinWords = 3

var (
	dateRe    = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	digitsRe  = regexp.MustCompile(`^\d+$`)
	moneyRe   = regexp.MustCompile(`^\d+,\d+$`)
	accountRe = regexp.MustCompile(`^\d+(\.\d+)*$`)
)

// CheckOrganization reports whether value contains a known legal-entity type.
func CheckOrganization(value string) bool {
	for _, t := range OrganizationTypes {
		if strings.Contains(value, t) {
			return true
		}
	}
	return false
}

// CheckPhrase reports whether value contains phrase.
func CheckPhrase(value, phrase string) bool {
	return strings.Contains(value, phrase)
}

// CheckNumber reports whether value parses as a number.
func CheckNumber(value string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return err == nil && !math.IsNaN(f)
}

// CheckPositive reports whether value is a number greater than zero.
func CheckPositive(value string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return err == nil && !math.IsNaN(f) && f > 0
}

// CheckMinWords reports whether value has at least n space-separated words.
func CheckMinWords(value string, n int) bool {
	return len(strings.Split(value, " ")) >= n
}

// CheckDate reports whether value is dd.mm.yyyy with a plausible day and month and
// a year not after now. One-digit days and months are accepted.
func CheckDate(value string, now time.Time) bool {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	return day >= 1 && day <= 31 && month >= 1 && month <= 12 && year <= now.Year()
}

// CheckName reports whether every word is longer than one rune and capitalised.
func CheckName(value string) bool {
	words := strings.Fields(value)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 1 {
			return false
		}
		first, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(first) {
			return false
		}
	}
	return true
}

// CheckDigits reports whether value is only decimal digits.
func CheckDigits(value string) bool {
	return digitsRe.MatchString(value)
}

// CheckMoney reports whether value is "<units>,<subunits>".
func CheckMoney(value string) bool {
	return moneyRe.MatchString(value)
}

// CheckAccountCode reports whether value is a dotted account number starting with prefix.
func CheckAccountCode(value, prefix string) bool {
	return accountRe.MatchString(value) && strings.HasPrefix(value, prefix)
}

// CheckAlphanumeric reports whether value holds only letters, digits and spaces.
func CheckAlphanumeric(value string) bool {
	for _, r := range value {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
			return false
		}
	}
	return value != ""
}
