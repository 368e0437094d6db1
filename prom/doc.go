// Package prom exports roarguard executor metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	collector, err := prom.NewCollector(prom.Options{Registerer: reg})
//	if err != nil {
//		return err
//	}
//	ex := roarguard.NewExecutor(roarguard.WithMetricsCollector(collector))
package prom
