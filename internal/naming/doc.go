// Package naming provides shared case conversion utilities for apiclient packages.
//
// Functions include Words, ToPascalCase, ToCamelCase, ToGoName, ToSnakeCase,
// ToKebabCase, ToEnvName, and ToTitleCase.
//
// These functions are used for:
//   - Endpoint package: Go method names and synthesized operation IDs
//   - Auth package: environment variable names for credential providers
//
// As an internal package, these functions are not part of the public API
// and may change without notice.
package naming
