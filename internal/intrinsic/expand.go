package intrinsic

import (
	"fmt"
	"strings"

	"natvis/internal/scanner"
)

// expandInline replaces a call to in with its body. Simple arguments are cast
// in place; any other argument is bound once to a temporary so that it is
// evaluated exactly once and in order.
func expandInline(in *Intrinsic, args []string) string {
	var temps []string
	values := make(map[string]string, len(in.Parameters))
	for i, p := range in.Parameters {
		arg := args[i]
		if scanner.IsSimple(arg) && !requiresDeduction(p.Type) {
			if p.Name != "" {
				values[p.Name] = castTo(p.Type, arg)
			}
			continue
		}
		tmp := fmt.Sprintf("%s%d_%d", tempPrefix, in.ID, i)
		temps = append(temps, fmt.Sprintf("%s %s = (%s);", strings.TrimSpace(p.Type), tmp, arg))
		if p.Name != "" {
			values[p.Name] = tmp
		}
	}

	body := replaceParams(in.Expression, values)
	if len(temps) == 0 {
		return "(" + body + ")"
	}
	return fmt.Sprintf("({ %s (%s); })", strings.Join(temps, " "), body)
}

// expandMacro rewrites a call to an overloaded intrinsic into a call of its
// generated definition.
func expandMacro(name string, args []string) string {
	return name + "(" + strings.Join(args, ", ") + ")"
}

func replaceParams(body string, values map[string]string) string {
	if len(values) == 0 {
		return body
	}
	return scanner.ReplaceIdents(body, func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	})
}
