package environment

import (
	"os"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

// manetteVariableNames are the settings read back from the interpreter
var manetteVariableNames = []string{
	"MANETTE_PROMPT", "MANETTE_BUILD_VERSION", "MANETTE_LOG_LEVEL",
	"MANETTE_CLEAN_LOG_FILE", "MANETTE_POPUP_HEIGHT", "MANETTE_POPUP_PAGE_SIZE",
	"MANETTE_HISTORY_LIMIT",
}

// DynamicEnviron implements expand.Environ on top of the process environment
// with manette settings layered over it, so child processes such as env see
// the values set in rc files.
type DynamicEnviron struct {
	systemEnv   expand.Environ
	manetteVars map[string]string
}

func NewDynamicEnviron() *DynamicEnviron {
	return &DynamicEnviron{
		systemEnv:   expand.ListEnviron(os.Environ()...),
		manetteVars: make(map[string]string),
	}
}

func (de *DynamicEnviron) Get(name string) expand.Variable {
	if value, exists := de.manetteVars[name]; exists {
		return expand.Variable{
			Exported: true,
			Kind:     expand.String,
			Str:      value,
		}
	}

	return de.systemEnv.Get(name)
}

func (de *DynamicEnviron) Each(fn func(name string, vr expand.Variable) bool) {
	for name, value := range de.manetteVars {
		if !fn(name, expand.Variable{
			Exported: true,
			Kind:     expand.String,
			Str:      value,
		}) {
			return
		}
	}

	de.systemEnv.Each(func(name string, vr expand.Variable) bool {
		if _, overridden := de.manetteVars[name]; !overridden {
			return fn(name, vr)
		}
		return true
	})
}

func (de *DynamicEnviron) UpdateManetteVar(name, value string) {
	de.manetteVars[name] = value
}

func (de *DynamicEnviron) UpdateSystemEnv() {
	de.systemEnv = expand.ListEnviron(os.Environ()...)
}

// SyncVariablesToEnv copies the manette settings held by the interpreter
// into the process environment and installs a DynamicEnviron on runner.
func SyncVariablesToEnv(runner *interp.Runner) {
	dynamicEnv, ok := runner.Env.(*DynamicEnviron)
	if !ok {
		dynamicEnv = NewDynamicEnviron()
	}

	for _, varName := range manetteVariableNames {
		if varValue, exists := runner.Vars[varName]; exists {
			value := varValue.String()
			if err := os.Setenv(varName, value); err != nil {
				return
			}
			dynamicEnv.UpdateManetteVar(varName, value)
			continue
		}

		_ = os.Unsetenv(varName)
		delete(dynamicEnv.manetteVars, varName)
	}

	dynamicEnv.UpdateSystemEnv()
	runner.Env = dynamicEnv
}
