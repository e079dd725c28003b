package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/buildplan/buildplan/pkg/descriptor"
	"github.com/buildplan/buildplan/pkg/diag"
	"github.com/buildplan/buildplan/pkg/resolver"
)

// Rule identifiers.
const (
	RuleRequired         = "required"
	RuleVersionOrder     = "version-order"
	RuleApplicationID    = "application-id"
	RuleNamespace        = "namespace"
	RuleSigningIdentity  = "signing-identity"
	RuleSharedSigning    = "shared-signing-identity"
	RuleVersionCode      = "version-code"
	RulePluginConstraint = "plugin-constraint"
	RulePolicy           = "policy"
)

// identifierPattern matches dotted identifiers of at least two lowercase
// segments, e.g. com.example.flutter_tuner. Android rejects single-segment
// application IDs, hence the two-segment minimum.
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

func newDiag(cfg *resolver.ResolvedConfig, sev diag.Severity, rule, key, msg string) diag.Diagnostic {
	return diag.Diagnostic{
		Severity: sev,
		Message:  msg,
		Path:     cfg.FieldPath(key),
		Variant:  cfg.Variant,
		Rule:     rule,
		Pos:      cfg.Pos(key),
	}
}

// checkRequired reports fields no layer supplies, and string fields that
// were supplied empty. Supplied values that failed conversion were already
// reported by the resolver.
func (v *Validator) checkRequired(cfg *resolver.ResolvedConfig) diag.Diagnostics {
	err := v.structs.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return diag.Diagnostics{newDiag(cfg, diag.SeverityError, RuleRequired, "variant", err.Error())}
	}

	var out diag.Diagnostics
	for _, fe := range fieldErrs {
		key, ok := resolver.FieldKeys[fe.StructField()]
		if !ok {
			key = fe.StructField()
		}
		_, supplied := cfg.Origin(key)
		switch {
		case !supplied:
			out = append(out, newDiag(cfg, diag.SeverityError, RuleRequired, key,
				key+" is required but no plugin, module or variant sets it"))
		case fe.Kind() == reflect.String:
			out = append(out, newDiag(cfg, diag.SeverityError, RuleRequired, key,
				key+" must not be empty"))
		}
	}
	return out
}

// checkVersionOrder enforces min_sdk <= target_sdk <= compile_sdk and
// reports at most one diagnostic.
func checkVersionOrder(cfg *resolver.ResolvedConfig) diag.Diagnostics {
	if cfg.MinSDK == 0 || cfg.TargetSDK == 0 || cfg.CompileSDK == 0 {
		return nil
	}
	switch {
	case cfg.MinSDK > cfg.TargetSDK:
		return diag.Diagnostics{newDiag(cfg, diag.SeverityError, RuleVersionOrder, descriptor.KeyMinSDK,
			fmt.Sprintf("minimum exceeds target (min_sdk %d > target_sdk %d)", cfg.MinSDK, cfg.TargetSDK))}
	case cfg.TargetSDK > cfg.CompileSDK:
		return diag.Diagnostics{newDiag(cfg, diag.SeverityError, RuleVersionOrder, descriptor.KeyTargetSDK,
			fmt.Sprintf("target exceeds compile (target_sdk %d > compile_sdk %d)", cfg.TargetSDK, cfg.CompileSDK))}
	}
	return nil
}

func checkIdentifier(cfg *resolver.ResolvedConfig, key, value, rule string, sev diag.Severity) diag.Diagnostics {
	if _, supplied := cfg.Origin(key); !supplied || value == "" {
		return nil
	}
	if identifierPattern.MatchString(value) {
		return nil
	}
	return diag.Diagnostics{newDiag(cfg, sev, rule, key, fmt.Sprintf(
		"%s %q must be at least two dot-separated segments of lowercase letters, digits and underscores, each starting with a letter",
		key, value))}
}

func (v *Validator) checkSigning(cfg *resolver.ResolvedConfig) diag.Diagnostics {
	if cfg.Signing == "" || v.identities.Has(cfg.Signing) {
		return nil
	}
	return diag.Diagnostics{newDiag(cfg, diag.SeverityError, RuleSigningIdentity, descriptor.KeySigning,
		fmt.Sprintf("unknown signing identity %q (known: %s)", cfg.Signing, strings.Join(v.identities.Names(), ", ")))}
}

func checkVersionCode(cfg *resolver.ResolvedConfig) diag.Diagnostics {
	if _, supplied := cfg.Origin(descriptor.KeyVersionCode); !supplied || cfg.VersionCode > 0 {
		return nil
	}
	return diag.Diagnostics{newDiag(cfg, diag.SeverityError, RuleVersionCode, descriptor.KeyVersionCode,
		fmt.Sprintf("version_code must be a positive integer, got %d", cfg.VersionCode))}
}

// checkSharedSigning warns on every variant that reuses an identity already
// used by an earlier variant.
func checkSharedSigning(configs []*resolver.ResolvedConfig) map[string]diag.Diagnostics {
	out := make(map[string]diag.Diagnostics)
	firstUser := make(map[string]string)
	for _, cfg := range configs {
		if cfg.Signing == "" {
			continue
		}
		first, seen := firstUser[cfg.Signing]
		if !seen {
			firstUser[cfg.Signing] = cfg.Variant
			continue
		}
		out[cfg.Variant] = append(out[cfg.Variant], newDiag(cfg, diag.SeverityWarning, RuleSharedSigning,
			descriptor.KeySigning, fmt.Sprintf("signing identity %q is also used by variant %q", cfg.Signing, first)))
	}
	return out
}
