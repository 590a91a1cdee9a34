/*
Command extractor turns the rows of a comma-separated S3 object into
EventBridge events.

For every data row (every row after the header) one event is published:

	{
	    "EventBusName": "default",
	    "Source":       "eventbridge-s3-extraction-task",
	    "DetailType":   "s3RecordExtraction",
	    "Detail":       {"status": "extracted", "headers": "a,b,c", "data": "1,2,3"}
	}

Runtimes

	extractor run      one-shot container task driven by S3_BUCKET_NAME / S3_OBJECT_KEY
	extractor lambda   Lambda handler for S3 notifications, direct or through SQS

The object is downloaded to SCRATCH_PATH (default <tmp>/data.tsv) and the file
is removed when the run ends, whatever the outcome.

Publishing

Each row is published on its own and retried with exponential backoff
(RETRY_MAX_ATTEMPTS, RETRY_INITIAL_BACKOFF, RETRY_MAX_BACKOFF,
RETRY_BACKOFF_MULTIPLIER). Rows that still fail are reported at the end of the
run. PUBLISH_FAILURE_POLICY=abort stops at the first such row instead.

ADAPTER_BUS selects where events go: eventbridge (default), sqs, rabbitmq or
kafka. Non-EventBridge buses receive the event wrapped in the envelope
EventBridge itself delivers to targets.

Exit codes

	0  success, including objects without data rows
	1  configuration error
	2  fetch error
	3  parse error
	4  publish failures after retries
	5  rows rejected by STRICT_ROW_ARITY
	6  a bus, storage or telemetry backend could not be set up
*/
package main
