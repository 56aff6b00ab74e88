package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/golang/glog"

	fx "github.com/robotalks/biped.go/pkg/framework"
	"github.com/robotalks/biped.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/biped.go/pkg/l1/msgs"
	walkmsgs "github.com/robotalks/biped.go/pkg/walking/msgs"
)

var (
	mqttURL     = "mqtt://localhost:1883/biped/"
	topicFilter = "#"
	skipJoints  bool
)

func init() {
	if val := os.Getenv("BIPED_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&topicFilter, "topic", topicFilter, "Topic filter under the prefix.")
	flag.BoolVar(&skipJoints, "skip-joints", skipJoints, "Don't print joint states.")
}

func printMessage(topic string, payload []byte) {
	if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
		glog.Infof("%s: %s", topic, string(payload))
		return
	}
	typed, err := msgs.DecodeTyped(payload)
	if err != nil {
		glog.Warningf("%s: bad message: %v", topic, err)
		return
	}
	if skipJoints && typed.TypeId == walkmsgs.JointStatesEventTypeID {
		return
	}
	msg, err := typed.Decode()
	if err != nil {
		glog.Warningf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
		return
	}
	glog.Infof("%s: #%d [%T] %s", topic, typed.Sequence, msg,
		msg.(msgs.SerializableMessage).Serializable().String())
}

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exit(err)
	}
	q.Sub(topicFilter, mqtt.Handler(printMessage))
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		glog.Exit(err)
	}
	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return q.Close()
	}))
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
