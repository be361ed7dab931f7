package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2/types"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/config"
)

// ErrSelfLearning wraps every failure of the utterance write-back.
var ErrSelfLearning = errors.New("self-learning write-back failed")

// LexAPI is the subset of the Lex V2 models client used by the learner.
type LexAPI interface {
	DescribeIntent(ctx context.Context, params *lexmodelsv2.DescribeIntentInput, optFns ...func(*lexmodelsv2.Options)) (*lexmodelsv2.DescribeIntentOutput, error)
	UpdateIntent(ctx context.Context, params *lexmodelsv2.UpdateIntentInput, optFns ...func(*lexmodelsv2.Options)) (*lexmodelsv2.UpdateIntentOutput, error)
}

// IntentLearner appends utterances the model classified as a handoff to the
// sample utterances of the configured intent.
type IntentLearner struct {
	client LexAPI
	cfg    config.LearningConfig
	log    *zap.Logger
}

func NewIntentLearner(client LexAPI, cfg config.LearningConfig, log *zap.Logger) *IntentLearner {
	return &IntentLearner{client: client, cfg: cfg, log: log.With(zap.String("module", "learning"))}
}

// Enabled reports whether the learner has a client and a complete intent reference.
func (l *IntentLearner) Enabled() bool {
	return l != nil && l.client != nil && l.cfg.Enabled()
}

// Learn reads the intent, appends utterance unless an equal one (trimmed,
// case-insensitive) already exists, and writes the intent back with every
// other field unchanged. It reports whether an update was issued.
func (l *IntentLearner) Learn(ctx context.Context, utterance, department string) (bool, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return false, nil
	}
	if !l.Enabled() {
		return false, fmt.Errorf("%w: bot, locale or intent not configured", ErrSelfLearning)
	}

	current, err := l.client.DescribeIntent(ctx, &lexmodelsv2.DescribeIntentInput{
		BotId:      aws.String(l.cfg.BotID),
		BotVersion: aws.String(l.cfg.BotVersion),
		LocaleId:   aws.String(l.cfg.LocaleID),
		IntentId:   aws.String(l.cfg.IntentID),
	})
	if err != nil {
		return false, fmt.Errorf("%w: describe intent: %w", ErrSelfLearning, err)
	}

	if containsUtterance(current.SampleUtterances, utterance) {
		l.log.Debug("utterance already known", zap.String("intentId", l.cfg.IntentID))
		return false, nil
	}

	utterances := make([]types.SampleUtterance, 0, len(current.SampleUtterances)+1)
	utterances = append(utterances, current.SampleUtterances...)
	utterances = append(utterances, types.SampleUtterance{Utterance: aws.String(utterance)})

	_, err = l.client.UpdateIntent(ctx, &lexmodelsv2.UpdateIntentInput{
		BotId:                     aws.String(l.cfg.BotID),
		BotVersion:                aws.String(l.cfg.BotVersion),
		LocaleId:                  aws.String(l.cfg.LocaleID),
		IntentId:                  aws.String(l.cfg.IntentID),
		IntentName:                current.IntentName,
		Description:               current.Description,
		ParentIntentSignature:     current.ParentIntentSignature,
		SampleUtterances:          utterances,
		DialogCodeHook:            current.DialogCodeHook,
		FulfillmentCodeHook:       current.FulfillmentCodeHook,
		SlotPriorities:            current.SlotPriorities,
		IntentConfirmationSetting: current.IntentConfirmationSetting,
		IntentClosingSetting:      current.IntentClosingSetting,
		InputContexts:             current.InputContexts,
		OutputContexts:            current.OutputContexts,
		KendraConfiguration:       current.KendraConfiguration,
		InitialResponseSetting:    current.InitialResponseSetting,
		QnAIntentConfiguration:    current.QnAIntentConfiguration,
	})
	if err != nil {
		return false, fmt.Errorf("%w: update intent: %w", ErrSelfLearning, err)
	}

	l.log.Info("added utterance to intent",
		zap.String("intentId", l.cfg.IntentID),
		zap.String("department", department),
		zap.Int("utterances", len(utterances)),
	)
	return true, nil
}

func containsUtterance(existing []types.SampleUtterance, utterance string) bool {
	for _, u := range existing {
		if strings.EqualFold(strings.TrimSpace(aws.ToString(u.Utterance)), utterance) {
			return true
		}
	}
	return false
}
