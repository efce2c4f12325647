// Package gochannel provides the in-memory bus used by single-process deployments and tests.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// CreateChannel returns one GoChannel acting as both publisher and subscriber.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1000}, logger)

	return pubSub, pubSub, nil
}

// CreateTestChannel keeps published messages for late subscribers and blocks publishers
// until the message is acked, which makes bus tests deterministic.
func CreateTestChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            10,
		Persistent:                     true,
		BlockPublishUntilSubscriberAck: true,
	}, logger)

	return pubSub, pubSub, nil
}
