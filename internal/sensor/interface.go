package sensor

// Sensor is the analog pulse sensor. ReadRawSample is called once per
// sampling period from the sampler goroutine and must not block.
type Sensor interface {
	ReadRawSample() (uint16, error)
	Close() error
}

// Observer is notified from the sampler goroutine. Implementations must be
// non-blocking and allocation free.
type Observer interface {
	SampleAcquired()
	AcquisitionFault()
	QueueOverflow()
}

type noopObserver struct{}

func (noopObserver) SampleAcquired()   {}
func (noopObserver) AcquisitionFault() {}
func (noopObserver) QueueOverflow()    {}
