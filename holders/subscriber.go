package holders

// Subscriber handles event subscriptions.
type Subscriber struct {
	done                 chan struct{}
	startedHandler       func(LookupStarted)
	assetsHandler        func(AssetsFetched)
	aggregatedHandler    func(HoldersAggregated)
	relationBatchHandler func(RelationBatchCompleted)
	doneHandler          func(LookupDone)
	failedHandler        func(LookupFailed)
	anyHandler           func(Event)
}

// OnLookupStarted sets the handler for LookupStarted events
func OnLookupStarted(fn func(LookupStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.startedHandler = fn }
}

// OnAssetsFetched sets the handler for AssetsFetched events
func OnAssetsFetched(fn func(AssetsFetched)) func(*Subscriber) {
	return func(s *Subscriber) { s.assetsHandler = fn }
}

// OnHoldersAggregated sets the handler for HoldersAggregated events
func OnHoldersAggregated(fn func(HoldersAggregated)) func(*Subscriber) {
	return func(s *Subscriber) { s.aggregatedHandler = fn }
}

// OnRelationBatchCompleted sets the handler for RelationBatchCompleted events
func OnRelationBatchCompleted(fn func(RelationBatchCompleted)) func(*Subscriber) {
	return func(s *Subscriber) { s.relationBatchHandler = fn }
}

// OnLookupDone sets the handler for LookupDone events
func OnLookupDone(fn func(LookupDone)) func(*Subscriber) {
	return func(s *Subscriber) { s.doneHandler = fn }
}

// OnLookupFailed sets the handler for LookupFailed events
func OnLookupFailed(fn func(LookupFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.failedHandler = fn }
}

// OnAny is invoked for every event after its typed handler
func OnAny(fn func(Event)) func(*Subscriber) {
	return func(s *Subscriber) { s.anyHandler = fn }
}

// NewSubscriber creates a Subscriber with the given options and starts the dispatch loop.
// Returns a closer function that waits for all events to be processed.
//
// The subscriber processes events until the events channel closes, so the
// owner of the channel must close it once the lookup has returned:
//
//	events := make(chan holders.Event, 16)
//	closer := holders.NewSubscriber(events,
//	  holders.OnLookupDone(func(e holders.LookupDone) { ... }),
//	)
//	result, err := service.Lookup(ctx, req) // service built WithEvents(events)
//	close(events)
//	closer()
func NewSubscriber(events <-chan Event, opts ...func(*Subscriber)) func() {
	s := &Subscriber{
		done:                 make(chan struct{}),
		startedHandler:       func(LookupStarted) {},          // nop by default
		assetsHandler:        func(AssetsFetched) {},          // nop by default
		aggregatedHandler:    func(HoldersAggregated) {},      // nop by default
		relationBatchHandler: func(RelationBatchCompleted) {}, // nop by default
		doneHandler:          func(LookupDone) {},             // nop by default
		failedHandler:        func(LookupFailed) {},           // nop by default
		anyHandler:           func(Event) {},                  // nop by default
	}

	for _, opt := range opts {
		opt(s)
	}

	// Start the dispatch loop immediately
	go func() {
		defer close(s.done)
		for ev := range events {
			switch e := ev.(type) {
			case LookupStarted:
				s.startedHandler(e)
			case AssetsFetched:
				s.assetsHandler(e)
			case HoldersAggregated:
				s.aggregatedHandler(e)
			case RelationBatchCompleted:
				s.relationBatchHandler(e)
			case LookupDone:
				s.doneHandler(e)
			case LookupFailed:
				s.failedHandler(e)
			}
			s.anyHandler(ev)
		}
	}()

	return func() {
		<-s.done
	}
}
