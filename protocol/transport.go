package protocol

// ByteSource supplies received bytes one at a time
type ByteSource interface {
	// TryReadByte polls for the next byte without blocking
	TryReadByte() (byte, bool)

	// WaitForReadable suspends for one tick until a retry is worthwhile
	WaitForReadable()
}

// SlotSender delivers complete outgoing frames
type SlotSender interface {
	// SendSlot transmits one frame atomically. frame is only valid for
	// the duration of the call.
	SendSlot(frame []byte) error
}

// Link is the transport used by the slave role
type Link interface {
	ByteSource
	SlotSender
}

// MasterLink is the transport used by the master role. The master must
// arm the link for the reply before it starts receiving.
type MasterLink interface {
	Link

	// ReserveReceiveSlot prepares the link to accept up to n inbound bytes
	ReserveReceiveSlot(n int) error
}

// Discarder is implemented by links that buffer input. Discard drops
// everything received so far and reports how many bytes went.
type Discarder interface {
	Discard() int
}

// Observer is notified about protocol traffic. Implementations must not
// block; they run on the transaction's goroutine.
type Observer interface {
	FrameSent(cmd Command, size int)
	FrameReceived(cmd Command, size int)
	TransactionFailed(cmd Command, err error)
}

type nopObserver struct{}

func (nopObserver) FrameSent(Command, int)           {}
func (nopObserver) FrameReceived(Command, int)       {}
func (nopObserver) TransactionFailed(Command, error) {}

// NopObserver ignores all notifications
var NopObserver Observer = nopObserver{}
