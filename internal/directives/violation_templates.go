package directives

import (
	"fmt"

	"github.com/hanpama/graphstitch/internal/schema"
)

// NOTE: Messages are matched by callers and tests; keep them stable.

func violationInvalidSelectionSet(directive, where string, err error, pos *schema.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Invalid selectionSet for @%s directive on %s: %v", directive, where, err),
		pos,
	)
}

func violationMergeOutsideQuery(pos *schema.Position) *Violation {
	return violationWithPosition("@merge directive may be used only for root fields of the root Query type.", pos)
}

func violationMergeReturnsNonNamed(pos *schema.Position) *Violation {
	return violationWithPosition("@merge directive must be used on a field that returns an object or a list of objects.", pos)
}

func violationMergeReturnsNonComposite(pos *schema.Position) *Violation {
	return violationWithPosition("@merge directive may be used only with resolver that return an object, interface, or union.", pos)
}

func violationInvalidArgsExpr(err error, pos *schema.Position) *Violation {
	return violationWithPosition(err.Error(), pos)
}

func violationMissingKeyArg(pos *schema.Position) *Violation {
	return violationWithPosition("Cannot use @merge directive without `keyArg` argument if resolver takes more than one argument.", pos)
}

func violationInvalidKeyArg(pos *schema.Position) *Violation {
	return violationWithPosition("`keyArg` argument for @merge directive must be a set of valid GraphQL SDL names separated by periods.", pos)
}

func violationInvalidKeyField(pos *schema.Position) *Violation {
	return violationWithPosition("`keyField` argument for @merge directive must be a set of valid GraphQL SDL names separated by periods.", pos)
}

func violationKeyFieldWithKey(pos *schema.Position) *Violation {
	return violationWithPosition("Cannot use @merge directive with both `keyField` and `key` arguments.", pos)
}

func violationInvalidPartialKey(pos *schema.Position) *Violation {
	return violationWithPosition("Each partial key within the `key` argument for @merge directive must be a set of valid GraphQL SDL names separated by periods.", pos)
}

func violationInvalidKeyAlias(pos *schema.Position) *Violation {
	return violationWithPosition("Each alias within the `key` argument for @merge directive must be a set of valid GraphQL SDL names separated by periods.", pos)
}

func violationInvalidAdditionalArgs(err error, pos *schema.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Invalid `additionalArgs` for @merge directive: %v", err), pos)
}

func violationArgsExprWithOthers(pos *schema.Position) *Violation {
	return violationWithPosition("Cannot use @merge directive with both `argsExpr` argument and any additional argument.", pos)
}

func violationTypesOnConcrete(pos *schema.Position) *Violation {
	return violationWithPosition("Types argument can only be used with a field that returns an abstract type.", pos)
}

func violationTypesNotImplementing(pos *schema.Position) *Violation {
	return violationWithPosition("Types argument can only include only type names that implement the field return type's abstract type.", pos)
}

func violationAdditionalArgsWithExpansion(pos *schema.Position) *Violation {
	return violationWithPosition("Cannot use `additionalArgs` with an expansion-based merge expression.", pos)
}

func violationListMergeWithoutExpansion(pos *schema.Position) *Violation {
	return violationWithPosition("@merge directive on a field that returns a list must expand its keys with a \"[[ ... ]]\" block in `argsExpr`.", pos)
}

func violationInvalidArgument(directive, arg, want string, pos *schema.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Argument %q of @%s directive must be %s", arg, directive, want),
		pos,
	)
}

func violationUnknownMergeField(typeName, fieldName string) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Merge config for type %q names unknown query field %q", typeName, fieldName),
		nil,
	)
}
