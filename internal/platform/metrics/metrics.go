// Package metrics exposes Prometheus counters for the vault core. Counter
// names stay coarse on purpose: nothing here may distinguish a duress login
// from an ordinary failed one.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Collector struct {
	registry *prometheus.Registry

	authAttempts        prometheus.Counter
	authFailures        prometheus.Counter
	vaultUnlocks        prometheus.Counter
	secretUpdates       prometheus.Counter
	handshakesInitiated prometheus.Counter
	handshakesCompleted prometheus.Counter
	rotations           prometheus.Counter
	rotationFailures    prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}
	counter := func(name, help string) prometheus.Counter {
		m := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sealchat",
			Subsystem: "core",
			Name:      name,
			Help:      help,
		})
		c.registry.MustRegister(m)
		return m
	}
	c.authAttempts = counter("auth_attempts_total", "Login attempts observed.")
	c.authFailures = counter("auth_failures_total", "Login attempts that ended unauthenticated.")
	c.vaultUnlocks = counter("vault_unlocks_total", "Successful vault unlocks.")
	c.secretUpdates = counter("secret_updates_total", "Shared-secret map rewrites persisted.")
	c.handshakesInitiated = counter("handshakes_initiated_total", "Key encapsulations published.")
	c.handshakesCompleted = counter("handshakes_completed_total", "Key encapsulations consumed.")
	c.rotations = counter("password_rotations_total", "Completed password rotations.")
	c.rotationFailures = counter("password_rotation_failures_total", "Password rotations that failed and kept the old key.")
	return c
}

// Registry returns the private registry for scraping or test assertions.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) AuthAttempt() {
	if c != nil {
		c.authAttempts.Inc()
	}
}

func (c *Collector) AuthFailure() {
	if c != nil {
		c.authFailures.Inc()
	}
}

func (c *Collector) VaultUnlock() {
	if c != nil {
		c.vaultUnlocks.Inc()
	}
}

func (c *Collector) SecretUpdate() {
	if c != nil {
		c.secretUpdates.Inc()
	}
}

func (c *Collector) HandshakeInitiated() {
	if c != nil {
		c.handshakesInitiated.Inc()
	}
}

func (c *Collector) HandshakeCompleted() {
	if c != nil {
		c.handshakesCompleted.Inc()
	}
}

func (c *Collector) Rotation() {
	if c != nil {
		c.rotations.Inc()
	}
}

func (c *Collector) RotationFailure() {
	if c != nil {
		c.rotationFailures.Inc()
	}
}
