package ecugate_test

import (
	"fmt"

	"github.com/tkivisto/ecugate"
	"github.com/tkivisto/ecugate/pkg/messages"
)

func ExamplePool() {
	queue := ecugate.NewQueue()
	p := ecugate.NewPool(queue, 1)
	p.SetProcessor(func(msg ecugate.Message) {
		if d, ok := msg.(*messages.Data); ok {
			fmt.Println("processed", d.Payload())
		}
	})

	p.Start()
	queue.Enqueue(messages.NewData("", "hello"))
	queue.Enqueue(messages.NewData("", "world"))
	p.Stop() // drains the queue before returning

	// Output:
	// processed hello
	// processed world
}

type toggle struct {
	ecugate.BaseState
	name string
}

func (t *toggle) Name() string { return t.name }

func ExampleMachine() {
	m := ecugate.NewMachine()
	m.AddState("off", &toggle{name: "off"})
	m.AddState("on", &toggle{name: "on"})
	m.AddTransition("off", "flip", "on", nil)
	m.AddTransition("on", "flip", "off", nil)
	m.SetInitialState("off")

	m.Start()
	m.TriggerEvent("flip", nil)
	fmt.Println(m.CurrentState())
	fmt.Println(m.History())
	m.Stop()

	// Output:
	// on
	// [off on]
}
