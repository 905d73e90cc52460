// Package types defines the core interfaces and data structures shared by the
// delegator: the provider interface, backend configuration, the normalized
// provider response, and the provider error taxonomy.
package types
