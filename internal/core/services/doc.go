// Package services implements the driving port interfaces.
//
// A Pipeline holds the settings and driven ports shared by every stage.
// IndexService loads, chunks, embeds and upserts files. QueryService
// retrieves with MMR, assembles a bounded context, asks the chat model
// and records each turn in the conversation History.
//
// Services depend only on domain and the driven ports.
package services
