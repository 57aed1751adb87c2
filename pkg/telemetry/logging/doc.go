// Package logging configures the process-wide structured logger.
//
// Components receive child loggers tagged with a "component" attribute so
// log output from the ledger, pricing estimator, budget evaluator, and
// sentinel engine can be filtered independently.
package logging
