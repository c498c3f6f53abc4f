package metrics

import "testing"

func TestCollector_ActionTagBuckets(t *testing.T) {
	c := NewCollector(1, false)
	c.IncActionTag("move")
	c.IncActionTag("copy")
	c.IncActionTag("extract")
	c.IncActionTag("delete")
	c.IncActionTag("trash")
	c.IncActionTag("link")
	c.IncActionTag("unknown")

	snap := c.Snapshot()
	if snap.ResourcesMoved != 1 {
		t.Errorf("ResourcesMoved = %d, want 1", snap.ResourcesMoved)
	}
	if snap.ResourcesCopied != 2 {
		t.Errorf("ResourcesCopied = %d, want 2", snap.ResourcesCopied)
	}
	if snap.ResourcesDeleted != 2 {
		t.Errorf("ResourcesDeleted = %d, want 2", snap.ResourcesDeleted)
	}
	if snap.ResourcesLinked != 1 {
		t.Errorf("ResourcesLinked = %d, want 1", snap.ResourcesLinked)
	}
	if snap.ResourcesSkipped != 1 {
		t.Errorf("ResourcesSkipped = %d, want 1", snap.ResourcesSkipped)
	}
}

func TestCollector_NilReceiverSafe(t *testing.T) {
	var c *Collector
	c.IncRuleRun()
	c.IncRuleFailed()
	c.IncResourceMatched()
	c.IncActionTag("move")
	c.IncResourceFailed()
	c.IncStorageError()
	c.IncUndoRecorded()
	c.AddBytesTransferred(100)

	if got := c.Snapshot(); got != (Snapshot{}) {
		t.Errorf("nil collector snapshot = %+v, want zero value", got)
	}
}

func TestCollector_Snapshot(t *testing.T) {
	c := NewCollector(42, true)
	c.IncRuleRun()
	c.IncRuleRun()
	c.IncRuleFailed()
	c.AddBytesTransferred(1024)
	c.AddBytesTransferred(512)

	snap := c.Snapshot()
	if snap.SessionID != 42 {
		t.Errorf("SessionID = %d, want 42", snap.SessionID)
	}
	if !snap.DryRun {
		t.Error("DryRun = false, want true")
	}
	if snap.RulesRun != 2 {
		t.Errorf("RulesRun = %d, want 2", snap.RulesRun)
	}
	if snap.RulesFailed != 1 {
		t.Errorf("RulesFailed = %d, want 1", snap.RulesFailed)
	}
	if snap.BytesTransferred != 1536 {
		t.Errorf("BytesTransferred = %d, want 1536", snap.BytesTransferred)
	}
}
