// Package api implements the §6 execution API surface: a single
// Execute(ctx, graphID, operation, args) entry point dispatching
// step_story/get_status/get_journal_entry/create_story/load_story against
// a pkg/storage.Repository and a pkg/vm.Engine, generalized from
// cmd/dungeongen/main.go's staged run() pipeline into a request/response
// shape.
package api
