// Package models defines domain entities and persistence interfaces for nowplaying.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [Track] : Song metadata with a stable service identifier
//   - [Playback] : A snapshot of what the music service is currently playing
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Token] : OAuth tokens for a music service, refreshed and re-saved while running
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps, validation, and soft delete support.
// The [Repository] interface defines standard CRUD operations for database access.
package models
