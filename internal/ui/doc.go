// Package ui implements the terminal status view shown by `nowplaying run --tui`.
//
// The [Model] follows bubbletea's Init/Update/View pattern. It polls a [StatusSource] on a fixed refresh
// interval and renders the current track, the time of the last poll, and the default and overlay values
// of the bio and emoji status fields. Pressing r polls the music service immediately.
//
// The view only reads state; presence and playback keep running in their own goroutines.
package ui
