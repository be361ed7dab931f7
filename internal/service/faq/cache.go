package faq

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const maxQuestionLength = 1000

// DynamoAPI is the subset of the DynamoDB client used by the cache.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Cache stores generated answers keyed by a hash of the normalised question.
// Every failure is logged and treated as a miss; the cache never fails a turn.
type Cache struct {
	client  DynamoAPI
	table   string
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewCache returns a cache over table. A nil *Cache or empty table disables it.
func NewCache(client DynamoAPI, table string, ttl, timeout time.Duration, log *zap.Logger) *Cache {
	return &Cache{
		client:  client,
		table:   table,
		ttl:     ttl,
		timeout: timeout,
		now:     time.Now,
		log:     log.With(zap.String("module", "faq")),
	}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.table != ""
}

// QuestionHash is the hex sha256 of the lower-cased, trimmed question.
func QuestionHash(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return hex.EncodeToString(sum[:])
}

// Lookup returns a cached answer that has not yet expired.
func (c *Cache) Lookup(ctx context.Context, question string) (string, bool) {
	if !c.enabled() {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			"QuestionHash": &types.AttributeValueMemberS{Value: QuestionHash(question)},
		},
	})
	if err != nil {
		c.log.Warn("cache lookup failed", zap.Error(err))
		return "", false
	}
	if out.Item == nil {
		return "", false
	}

	ttlAttr, ok := out.Item["TTL"].(*types.AttributeValueMemberN)
	if !ok {
		return "", false
	}
	expires, err := strconv.ParseInt(ttlAttr.Value, 10, 64)
	if err != nil || expires <= c.now().Unix() {
		return "", false
	}

	answer, ok := out.Item["Answer"].(*types.AttributeValueMemberS)
	if !ok || answer.Value == "" {
		return "", false
	}

	c.log.Info("cache hit")
	return answer.Value, true
}

// Store saves answer for question with the configured TTL.
func (c *Cache) Store(ctx context.Context, question, answer string) {
	if !c.enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	expires := c.now().Add(c.ttl).Unix()
	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item: map[string]types.AttributeValue{
			"QuestionHash": &types.AttributeValueMemberS{Value: QuestionHash(question)},
			"Question":     &types.AttributeValueMemberS{Value: truncate(question, maxQuestionLength)},
			"Answer":       &types.AttributeValueMemberS{Value: answer},
			"TTL":          &types.AttributeValueMemberN{Value: strconv.FormatInt(expires, 10)},
		},
	})
	if err != nil {
		c.log.Warn("cache write failed", zap.Error(err))
		return
	}
	c.log.Debug("cached answer")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
