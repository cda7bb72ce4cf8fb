// Package influxdb exports collector counters to an InfluxDB v2 bucket.
//
// Each export tick writes one point to the query_stats measurement:
//
//	query_stats,scope=registry,service=graydb queries=42u,selects=30u,reads=31u,writes=11u,...
//
// Counters are cumulative since process start. Points are batched by the
// client library; batch failures surface through SetOnError and Failures,
// never as return values, so a slow or absent server cannot stall query
// execution.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.WriteQueryStats("registry", reg.Collector().Snapshot(), time.Now())
package influxdb
