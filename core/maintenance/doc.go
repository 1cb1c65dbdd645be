// Package maintenance issues workshop visits for the ambulance on a cron
// schedule, in addition to the randomized maintenance worker of a simulation
// run. A scheduled visit waits like any other request and is skipped while a
// previous one is still pending.
package maintenance
