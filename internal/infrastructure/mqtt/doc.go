// Package mqtt publishes graydb activity to an MQTT broker.
//
// The client never subscribes. It writes three kinds of message:
//
//	{prefix}/query/{driver}/{category}   one JSON event per statement notification
//	{prefix}/stats                       retained collector snapshot
//	{prefix}/system/status               retained online/offline status (also the will)
//
// A consumer following everything for one driver subscribes to
// {prefix}/query/sqlite/+. Query events include bound parameters, so broker
// ACLs for the query tree should be as strict as audit access.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	err = client.Publish(client.Topics().Stats(), snapshot, 1, true)
package mqtt
