// Package handlers provides the HTTP handlers of the mapbuilder daemon: webhook intake,
// monitoring endpoints and static serving of published minimaps.
package handlers
