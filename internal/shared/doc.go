// Package shared holds utilities used across the pipeline that belong
// to no specific stage. Currently that is the testutil subpackage: an
// in-memory slog capture handler and domain fixture builders.
//
// Nothing here may contain business logic or depend on the stage
// packages; dependencies flow the other way.
package shared
