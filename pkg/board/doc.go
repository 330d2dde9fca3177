// Package board builds the kanban view of tasks: stage columns in configured
// order, server-ordered tasks within each column, and move/assign operations
// expressed as provider updates.
package board
