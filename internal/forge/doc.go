// Package forge handles the GitHub side of a build trigger: webhook signature
// verification, push payload decoding and the compare lookup that decides whether
// a push touched any tracked assets.
package forge
