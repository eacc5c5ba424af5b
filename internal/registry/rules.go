package registry

import "strings"

// testLibPrefix names the exception path ignored when deciding whether a
// module lives entirely under one ext/ directory.
const testLibPrefix = "t/lib/"

// Rules returns the module's mapping rule set, deriving defaults when the
// registry does not supply one:
//
//   - all core files under a single ext/<name>/ directory (files under
//     t/lib/ do not count): one rule mapping the empty prefix to that
//     directory;
//   - otherwise: lib/ maps to lib/ and the empty prefix maps to
//     lib/<Module/Name/>.
//
// The returned set is never empty and never aliases the record.
func (rec *ModuleRecord) Rules(coreFiles []string) map[string]string {
	if len(rec.Mapping) > 0 {
		rules := make(map[string]string, len(rec.Mapping))
		for k, v := range rec.Mapping {
			rules[k] = v
		}
		return rules
	}

	if dir, ok := singleExtDir(coreFiles); ok {
		return map[string]string{"": dir}
	}
	return map[string]string{
		"lib/": "lib/",
		"":     "lib/" + strings.ReplaceAll(rec.Name, "::", "/") + "/",
	}
}

func singleExtDir(coreFiles []string) (string, bool) {
	var dir string
	for _, f := range coreFiles {
		if strings.HasPrefix(f, testLibPrefix) {
			continue
		}
		rest, ok := strings.CutPrefix(f, "ext/")
		if !ok {
			return "", false
		}
		i := strings.Index(rest, "/")
		if i < 0 {
			return "", false
		}
		d := "ext/" + rest[:i+1]
		if dir == "" {
			dir = d
		} else if dir != d {
			return "", false
		}
	}
	return dir, dir != ""
}
