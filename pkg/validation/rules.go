package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ruslano69/tablekit/pkg/core/record"
)

// RuleType определяет тип правила валидации
type RuleType string

const (
	// RuleRequired - поле не пустое
	RuleRequired RuleType = "required"
	// RuleNumeric - значение число
	RuleNumeric RuleType = "numeric"
	// RuleCurrency - значение денежная сумма
	RuleCurrency RuleType = "currency"
	// RuleRegex - валидация по регулярному выражению
	RuleRegex RuleType = "regex"
	// RuleLength - длина строки (min-max)
	RuleLength RuleType = "length"
	// RuleRange - числовой диапазон (min-max)
	RuleRange RuleType = "range"
	// RuleEnum - список допустимых значений (a,b,c)
	RuleEnum RuleType = "enum"
	// RuleEmail - email адрес
	RuleEmail RuleType = "email"
)

// Operation - операция, для которой выполняется проверка
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Rule - правило валидации поля
type Rule struct {
	Field   string   `yaml:"field"`
	Type    RuleType `yaml:"type"`
	Param   string   `yaml:"param,omitempty"`
	Message string   `yaml:"message,omitempty"`

	// On - "insert" или "update". Пусто - обе операции.
	On Operation `yaml:"on,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ParseRule парсит правило из строки "type:param"
// (например: "range:0-150", "enum:active,inactive", "email")
func ParseRule(field, s string) (Rule, error) {
	ruleType, param, _ := strings.Cut(s, ":")
	rule := Rule{Field: field, Type: RuleType(strings.TrimSpace(ruleType)), Param: param}
	if _, err := Compile([]Rule{rule}); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

type compiledRule struct {
	Rule
	re       *regexp.Regexp
	min, max float64
	enum     []string
}

// RuleSet - проверенный и скомпилированный набор правил
type RuleSet struct {
	rules []compiledRule
}

// Compile проверяет правила и предкомпилирует регулярные выражения
func Compile(rules []Rule) (*RuleSet, error) {
	rs := &RuleSet{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if strings.TrimSpace(r.Field) == "" {
			return nil, fmt.Errorf("rule %q has no field", r.Type)
		}
		switch r.On {
		case "", OpInsert, OpUpdate:
		default:
			return nil, fmt.Errorf("rule for field '%s': invalid 'on' value %q", r.Field, r.On)
		}

		c := compiledRule{Rule: r}
		switch r.Type {
		case RuleRequired, RuleNumeric, RuleCurrency, RuleEmail:
		case RuleRegex:
			re, err := regexp.Compile(r.Param)
			if err != nil {
				return nil, fmt.Errorf("invalid regex pattern '%s': %w", r.Param, err)
			}
			c.re = re
		case RuleLength, RuleRange:
			min, max, err := parseBounds(r.Param)
			if err != nil {
				return nil, fmt.Errorf("rule for field '%s': %w", r.Field, err)
			}
			c.min, c.max = min, max
		case RuleEnum:
			for _, v := range strings.Split(r.Param, ",") {
				c.enum = append(c.enum, strings.TrimSpace(v))
			}
		default:
			return nil, fmt.Errorf("unknown validation rule type: %s", r.Type)
		}
		rs.rules = append(rs.rules, c)
	}
	return rs, nil
}

// parseBounds разбирает "min-max"; min может быть отрицательным ("-10-10")
func parseBounds(param string) (float64, float64, error) {
	i := -1
	if len(param) > 1 {
		if j := strings.Index(param[1:], "-"); j >= 0 {
			i = j + 1
		}
	}
	if i < 0 {
		return 0, 0, fmt.Errorf("invalid bounds format '%s', expected 'min-max'", param)
	}

	min, err := strconv.ParseFloat(strings.TrimSpace(param[:i]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid min value in '%s'", param)
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(param[i+1:]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid max value in '%s'", param)
	}
	if min > max {
		return 0, 0, fmt.Errorf("min greater than max in '%s'", param)
	}
	return min, max, nil
}

// Len возвращает число правил
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Apply проверяет запись и добавляет сообщения в set.
// Отсутствующее поле нарушает только required и только при вставке:
// UPDATE меняет лишь переданные колонки.
func (rs *RuleSet) Apply(set *ErrorSet, rec record.Record, op Operation) {
	if rs == nil || op == OpDelete {
		return
	}
	for _, r := range rs.rules {
		if r.On != "" && r.On != op {
			continue
		}

		v, present := rec.Lookup(r.Field)
		if r.Type == RuleRequired {
			if present || op == OpInsert {
				set.ValidatesPresenceOf(r.Field, v, r.Message)
			}
			continue
		}
		if !present || v.IsNull() {
			continue
		}
		r.check(set, v)
	}
}

func (r compiledRule) check(set *ErrorSet, v record.Value) {
	switch r.Type {
	case RuleNumeric:
		set.ValidatesNumericalityOf(r.Field, v, r.Message)
	case RuleCurrency:
		set.ValidatesCurrency(r.Field, v, r.Message)
	case RuleRegex:
		set.ValidatesFormatOf(r.Field, v, r.re, r.Message)
	case RuleEmail:
		set.ValidatesFormatOf(r.Field, v, emailRegex, messageOr(r.Message, "%s is not a valid email", r.Field))
	case RuleLength:
		set.ValidatesLengthOf(r.Field, v, int(r.min), int(r.max), r.Message)
	case RuleRange:
		f, ok := v.AsFloat()
		if !ok {
			set.Add(messageOr(r.Message, "%s must be a number", r.Field))
			return
		}
		if f < r.min || f > r.max {
			set.Add(messageOr(r.Message, fmt.Sprintf("%%s is out of range [%g, %g]", r.min, r.max), r.Field))
		}
	case RuleEnum:
		s := v.String()
		for _, allowed := range r.enum {
			if allowed == s {
				return
			}
		}
		set.Add(messageOr(r.Message, "%s is not in allowed list ["+r.Param+"]", r.Field))
	}
}
